package httpserver

import (
	"context"
	"errors"
	"github.com/Borislavv/infinite-feed/pkg/http/server/controller"
	"github.com/Borislavv/infinite-feed/pkg/http/server/middleware"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"strings"
	"sync"
	"time"
)

// Server is a fasthttp server bound to a context: it shuts down once the context is done.
type Server interface {
	ListenAndServe()
}

type HTTP struct {
	ctx    context.Context
	config Config
	server *fasthttp.Server
}

func New(
	ctx context.Context,
	config Config,
	controllers []controller.HttpController,
	middlewares []middleware.HttpMiddleware,
) (*HTTP, error) {
	if config.Port == "" {
		return nil, errors.New("server port is not configured")
	}
	s := &HTTP{ctx: ctx, config: config}
	s.initServer(s.buildRouter(controllers), middlewares)
	return s, nil
}

// ListenAndServe blocks until the server has stopped.
func (s *HTTP) ListenAndServe() {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go s.serve(wg)

	wg.Add(1)
	go s.shutdown(wg)
}

func (s *HTTP) serve(wg *sync.WaitGroup) {
	defer wg.Done()

	name := s.config.Name
	port := s.config.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	log.Info().Msgf("[server] %v was started on %v", name, port)
	defer log.Info().Msgf("[server] %v was stopped on %v", name, port)

	if err := s.server.ListenAndServe(port); err != nil {
		log.Error().Err(err).Msgf("[server] %v failed to listen and serve port %v: %v", name, port, err.Error())
	}
}

func (s *HTTP) shutdown(wg *sync.WaitGroup) {
	defer wg.Done()

	<-s.ctx.Done()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = time.Second * 10
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.server.ShutdownWithContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Msgf("[server] %v shutdown failed: %v", s.config.Name, err.Error())
		}
		return
	}
}

func (s *HTTP) buildRouter(controllers []controller.HttpController) *router.Router {
	r := router.New()
	for _, contr := range controllers {
		contr.AddRoute(r)
	}
	return r
}

// Handler returns the composed handler, useful to serve requests without a listener.
func (s *HTTP) Handler() fasthttp.RequestHandler {
	return s.server.Handler
}

func (s *HTTP) mergeMiddlewares(
	handler fasthttp.RequestHandler,
	middlewares []middleware.HttpMiddleware,
) fasthttp.RequestHandler {
	// the first middleware in the slice must be the outermost one
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i].Middleware(handler)
	}
	return handler
}

func (s *HTTP) initServer(r *router.Router, middlewares []middleware.HttpMiddleware) {
	s.server = &fasthttp.Server{
		Handler:                       s.mergeMiddlewares(r.Handler, middlewares),
		Name:                          s.config.Name,
		ReduceMemoryUsage:             true,             // Reuse internal buffers aggressively to lower memory footprint and GC overhead.
		DisablePreParseMultipartForm:  true,             // The API only accepts small json bodies.
		DisableHeaderNamesNormalizing: true,             // Prevent normalization of header names to save CPU cycles.
		CloseOnShutdown:               true,             // Ensure that all open connections are closed when the server shuts down gracefully.
		ReadTimeout:                   5 * time.Second,  // Maximum time allowed to read the full request (headers + body).
		WriteTimeout:                  10 * time.Second, // Assets may be a few megabytes.
		IdleTimeout:                   60 * time.Second, // Maximum idle time before a keep-alive connection is closed.
		TCPKeepalive:                  true,             // Enable OS-level TCP keep-alive probes to detect dead peers.
		TCPKeepalivePeriod:            30 * time.Second, // Interval between TCP keep-alive probes.
		NoDefaultServerHeader:         true,             // The server name middleware sets it.
		MaxRequestBodySize:            64 << 10,         // 64 KiB is plenty for input events.
	}
}
