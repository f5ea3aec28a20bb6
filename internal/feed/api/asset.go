package api

import (
	"context"
	"errors"
	"github.com/Borislavv/infinite-feed/pkg/asset"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
	stdconv "strconv"
)

// Resolver resolves item image locators.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (*asset.Asset, error)
}

// AssetController serves the custom scheme over plain HTTP: GET /<scheme>/<path>.
type AssetController struct {
	ctx      context.Context
	scheme   string
	resolver Resolver
	meter    metrics.Meter
}

func NewAssetController(ctx context.Context, scheme string, resolver Resolver, meter metrics.Meter) *AssetController {
	return &AssetController{ctx: ctx, scheme: scheme, resolver: resolver, meter: meter}
}

func (c *AssetController) Get(ctx *fasthttp.RequestCtx) {
	// the raw path keeps percent-encoding, the resolver decodes it exactly once
	locator := strconv.B2S(ctx.URI().PathOriginal())

	a, err := c.resolver.Resolve(c.ctx, locator)
	status := asset.StatusCode(err)
	c.meter.IncAssetRequest(stdconv.Itoa(status))

	if err != nil {
		if status == fasthttp.StatusInternalServerError && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msgf("[asset] failed to serve %s", locator)
		} else {
			log.Debug().Err(err).Msgf("[asset] rejected %s", locator)
		}
		ctx.Error(fasthttp.StatusMessage(status), status)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(a.ContentType)
	ctx.SetBody(a.Body)
}

func (c *AssetController) AddRoute(r *router.Router) {
	r.GET("/"+c.scheme+"/{path:*}", c.Get)
}
