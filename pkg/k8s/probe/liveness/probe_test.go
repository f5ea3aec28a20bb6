package liveness

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

type fakeService struct{ alive atomic.Bool }

func (f *fakeService) IsAlive(ctx context.Context) bool { return f.alive.Load() }

func TestProbe_WatchAndToggle(t *testing.T) {
	svc := &fakeService{}
	svc.alive.Store(true)
	probe := NewProbe(50 * time.Millisecond)
	probe.Watch(svc)

	assert.Eventually(t, probe.IsAlive, time.Second, 10*time.Millisecond)

	// change state
	svc.alive.Store(false)
	assert.Eventually(t, func() bool { return !probe.IsAlive() }, time.Second, 10*time.Millisecond)
}

func TestController_Probe(t *testing.T) {
	svc := &fakeService{}
	svc.alive.Store(true)
	probe := NewProbe(10 * time.Millisecond)
	probe.Watch(svc)
	assert.Eventually(t, probe.IsAlive, time.Second, 5*time.Millisecond)

	r := router.New()
	NewController(probe).AddRoute(r)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI(ProbePath)
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	r.Handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	svc.alive.Store(false)
	assert.Eventually(t, func() bool { return !probe.IsAlive() }, time.Second, 5*time.Millisecond)

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI(ProbePath)
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	r.Handler(ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"alive":false}`, string(ctx.Response.Body()))
}
