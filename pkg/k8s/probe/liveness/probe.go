package liveness

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Config is read from the environment.
type Config struct {
	Timeout time.Duration `mapstructure:"LIVENESS_PROBE_TIMEOUT"`
}

// Service is anything able to report its own health.
type Service interface {
	IsAlive(ctx context.Context) bool
}

type Prober interface {
	Watch(services ...Service)
	IsAlive() bool
}

// Probe polls watched services every timeout and caches the aggregate answer,
// so that the probe endpoint never blocks on a slow service.
type Probe struct {
	timeout time.Duration
	alive   atomic.Bool
}

func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Probe{timeout: timeout}
}

// Watch starts polling in background. The probe reports alive only if every service does.
func (p *Probe) Watch(services ...Service) {
	go func() {
		t := time.NewTicker(p.timeout)
		defer t.Stop()
		for {
			p.alive.Store(p.check(services))
			<-t.C
		}
	}()
}

func (p *Probe) check(services []Service) bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	for _, svc := range services {
		if !svc.IsAlive(ctx) {
			log.Warn().Msg("[probe] service reported it is not alive")
			return false
		}
	}
	return true
}

func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}
