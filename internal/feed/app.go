package feed

import (
	"context"
	"github.com/Borislavv/infinite-feed/internal/feed/config"
	"github.com/Borislavv/infinite-feed/internal/feed/server"
	"github.com/Borislavv/infinite-feed/pkg/asset"
	"github.com/Borislavv/infinite-feed/pkg/engine"
	"github.com/Borislavv/infinite-feed/pkg/k8s/probe/liveness"
	"github.com/Borislavv/infinite-feed/pkg/mock"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/Borislavv/infinite-feed/pkg/shutdown"
	"github.com/rs/zerolog/log"
	"time"
)

const aliveTimeout = time.Second

// App defines the feed application lifecycle interface.
type App interface {
	Start(gc shutdown.Gracefuller)
	IsAlive(ctx context.Context) bool
}

// Feed wires the feed engine, the asset resolver and the HTTP API together.
type Feed struct {
	cfg      *config.Config
	ctx      context.Context
	cancel   context.CancelFunc
	probe    liveness.Prober
	engine   *engine.Feed
	resolver *asset.Resolver
	server   server.Http
}

func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*Feed, error) {
	ctx, cancel := context.WithCancel(ctx)

	meter := metrics.New()

	feedEngine, err := engine.New(ctx, cfg.Feed, mock.NewSource(cfg.Feed), meter)
	if err != nil {
		cancel()
		return nil, err
	}

	resolver, err := asset.NewResolver(cfg.Feed.Feed.Assets, meter)
	if err != nil {
		feedEngine.Close()
		cancel()
		return nil, err
	}

	srv, err := server.New(ctx, cfg, feedEngine, resolver, probe, meter)
	if err != nil {
		feedEngine.Close()
		resolver.Close()
		cancel()
		return nil, err
	}

	return &Feed{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		probe:    probe,
		engine:   feedEngine,
		resolver: resolver,
		server:   srv,
	}, nil
}

// Start runs the engine, the liveness probe and the HTTP server; it blocks until the server exits.
// The Gracefuller is notified once everything is released.
func (f *Feed) Start(gc shutdown.Gracefuller) {
	defer func() {
		f.stop()
		gc.Done()
	}()

	log.Info().Msg("[app] starting feed")

	f.engine.Start()

	waitCh := make(chan struct{})
	go func() {
		defer close(waitCh)
		f.probe.Watch(f) // does not block
		f.server.Start()
	}()

	log.Info().Msg("[app] feed has been started")

	<-waitCh
}

func (f *Feed) stop() {
	log.Info().Msg("[app] stopping feed")
	defer f.cancel()

	f.engine.Close()
	f.resolver.Close()

	log.Info().Msg("[app] feed has been stopped")
}

// IsAlive reports false once the HTTP server is gone or the feed timeline stops answering.
func (f *Feed) IsAlive(ctx context.Context) bool {
	if !f.server.IsAlive() {
		log.Info().Msg("[app] http server has gone away")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, aliveTimeout)
	defer cancel()
	if _, err := f.engine.Snapshot(ctx); err != nil {
		log.Info().Err(err).Msg("[app] feed timeline does not respond")
		return false
	}
	return true
}
