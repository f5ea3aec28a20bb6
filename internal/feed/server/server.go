package server

import (
	"context"
	"errors"
	"github.com/Borislavv/infinite-feed/internal/feed/api"
	"github.com/Borislavv/infinite-feed/internal/feed/config"
	httpserver "github.com/Borislavv/infinite-feed/pkg/http/server"
	"github.com/Borislavv/infinite-feed/pkg/http/server/controller"
	"github.com/Borislavv/infinite-feed/pkg/http/server/middleware"
	"github.com/Borislavv/infinite-feed/pkg/k8s/probe/liveness"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/infinite-feed/pkg/prometheus/metrics/controller"
	metricsmiddleware "github.com/Borislavv/infinite-feed/pkg/prometheus/metrics/middleware"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"sync"
	"sync/atomic"
)

var (
	InitFailedErrorMessage = "[server] init. failed"
)

// Http interface exposes methods for starting and liveness probing.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer wraps all dependencies required for running the HTTP server.
type HttpServer struct {
	ctx           context.Context
	cfg           *config.Config
	feed          api.Feed
	resolver      api.Resolver
	probe         liveness.Prober
	metrics       metrics.Meter
	server        *httpserver.HTTP
	isServerAlive *atomic.Bool
}

func New(
	ctx context.Context,
	cfg *config.Config,
	feed api.Feed,
	resolver api.Resolver,
	probe liveness.Prober,
	meter metrics.Meter,
) (*HttpServer, error) {
	srv := &HttpServer{
		ctx:           ctx,
		cfg:           cfg,
		feed:          feed,
		resolver:      resolver,
		probe:         probe,
		metrics:       meter,
		isServerAlive: &atomic.Bool{},
	}

	server, err := httpserver.New(ctx, cfg.Server, srv.controllers(), srv.middlewares())
	if err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}
	srv.server = server

	return srv, nil
}

// Start runs the HTTP server and blocks until it has stopped.
func (s *HttpServer) Start() {
	wg := &sync.WaitGroup{}
	defer wg.Wait()
	s.spawnServer(wg)
}

func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) spawnServer(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
}

func (s *HttpServer) controllers() []controller.HttpController {
	controllers := []controller.HttpController{
		liveness.NewController(s.probe),
		api.NewFeedController(s.ctx, s.feed),
		api.NewAssetController(s.ctx, s.cfg.Feed.Feed.Assets.Scheme, s.resolver, s.metrics),
	}
	if s.cfg.Metrics.Enabled {
		controllers = append(controllers, metricscontroller.NewPrometheusMetrics())
	}
	return controllers
}

// middlewares are executed in the slice order.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	middlewares := []middleware.HttpMiddleware{
		/** exec 1st. */ middleware.NewServerNameMiddleware(s.cfg.Server.Name),
		/** exec 2nd. */ middleware.NewApplicationJsonMiddleware(),
	}
	if s.cfg.Metrics.Enabled {
		middlewares = append(middlewares, metricsmiddleware.NewPrometheusMetrics(s.metrics, "/"+s.cfg.Feed.Feed.Assets.Scheme+"/"))
	}
	return middlewares
}

// Handler exposes the composed request handler.
func (s *HttpServer) Handler() fasthttp.RequestHandler {
	return s.server.Handler()
}
