package main

import (
	"context"
	"runtime"
	"time"

	"github.com/Borislavv/infinite-feed/internal/feed"
	feedconfig "github.com/Borislavv/infinite-feed/internal/feed/config"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/k8s/probe/liveness"
	"github.com/Borislavv/infinite-feed/pkg/logs"
	"github.com/Borislavv/infinite-feed/pkg/shutdown"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	configPath      = "feed.cfg.yaml"
	configPathLocal = "feed.cfg.local.yaml"
)

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU parallelism)
// based on the available CPUs and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg loads the yaml feed config (local override first) and the process settings from env.
func loadCfg() (*feedconfig.Config, error) {
	cfg, err := config.LoadConfig(configPathLocal)
	if err != nil {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			log.Err(err).Msg("[config] failed to load")
			return nil, err
		} else {
			log.Info().Msgf("[config] config loaded from '%v'", configPath)
		}
	} else {
		log.Info().Msgf("[config] config loaded from '%v'", configPathLocal)
	}
	return feedconfig.Load(cfg)
}

// Main entrypoint: configures and starts the feed service.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	cfg, cfgError := loadCfg()
	if cfgError != nil {
		log.Err(cfgError).Msg("[main] failed to load feed config")
		return
	}
	logs.Setup(cfg.Feed.Feed.Logs, nil)

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(cfg.Server.ShutdownTimeout + 5*time.Second)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(cfg.Probe.Timeout)

	app, err := feed.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init feed app")
		return
	}

	// Register app for graceful shutdown.
	gracefulShutdown.Add(1)
	go app.Start(gracefulShutdown)

	// Listen for OS signals or context cancellation and wait for graceful shutdown.
	if err := gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("failed to gracefully shut down service")
	}
}
