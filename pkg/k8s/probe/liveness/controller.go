package liveness

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const ProbePath = "/k8s/probe"

var (
	aliveBody = []byte(`{"alive":true}`)
	deadBody  = []byte(`{"alive":false}`)
)

type Controller struct {
	probe Prober
}

func NewController(probe Prober) *Controller {
	return &Controller{probe: probe}
}

func (c *Controller) Probe(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	if c.probe.IsAlive() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(aliveBody)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	ctx.SetBody(deadBody)
}

func (c *Controller) AddRoute(r *router.Router) {
	r.GET(ProbePath, c.Probe)
}
