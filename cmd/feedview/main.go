package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Borislavv/infinite-feed/internal/feed"
	"github.com/Borislavv/infinite-feed/pkg/engine"
	"github.com/Borislavv/infinite-feed/pkg/logs"
	"github.com/Borislavv/infinite-feed/pkg/mock"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/Borislavv/infinite-feed/pkg/tui"
	"github.com/rs/zerolog/log"
)

// Terminal feed viewer: pick a config, then scroll the feed with the wheel and keyboard.
func main() {
	if err := run(); err != nil && !errors.Is(err, feed.ErrAborted) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := feed.ChooseConfig(".")
	if err != nil {
		return err
	}

	// the terminal belongs to the view, logs go to a file
	logFile, err := os.OpenFile(cfg.Feed.Logs.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logs.Setup(cfg.Feed.Logs, logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, err := engine.New(ctx, cfg, mock.NewSource(cfg), metrics.New())
	if err != nil {
		return err
	}
	f.Start()
	defer f.Close()

	log.Info().Msg("[feedview] terminal view started")
	defer log.Info().Msg("[feedview] terminal view stopped")

	return tui.NewView(ctx, f, cfg.Feed.Window.ViewportHeight).Run()
}
