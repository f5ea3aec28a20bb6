package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrTimeout = errors.New("graceful shutdown timed out")

// Gracefuller is handed to every long-running component: Add before start, Done once fully stopped.
type Gracefuller interface {
	Add(n int)
	Done()
}

type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{ctx: ctx, cancel: cancel, timeout: time.Minute}
}

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(n int) { g.wg.Add(n) }
func (g *Graceful) Done()     { g.wg.Done() }

// ListenCancelAndAwait blocks until SIGINT/SIGTERM or context cancellation, cancels the root context
// and waits for registered components within the graceful timeout.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] %s received, shutting down", sig)
	case <-g.ctx.Done():
		log.Info().Msg("[shutdown] context cancelled, shutting down")
	}
	g.cancel()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		g.wg.Wait()
	}()

	select {
	case <-doneCh:
		log.Info().Msg("[shutdown] gracefully finished")
		return nil
	case <-time.After(g.timeout):
		return ErrTimeout
	}
}
