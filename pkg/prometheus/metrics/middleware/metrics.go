package middleware

import (
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
	stdconv "strconv"
	"strings"
)

// PrometheusMetrics counts requests and responses and tracks response time per route.
type PrometheusMetrics struct {
	metrics  metrics.Meter
	collapse []string
}

func NewPrometheusMetrics(metrics metrics.Meter, collapse ...string) *PrometheusMetrics {
	return &PrometheusMetrics{metrics: metrics, collapse: collapse}
}

func (m *PrometheusMetrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		// label values are copied by the meter, the zero-copy views never outlive the request
		path := m.routeOf(ctx)
		method := strconv.B2S(ctx.Method())

		timer := m.metrics.NewResponseTimeTimer(path, method)

		m.metrics.IncTotal(path, method, "")

		next(ctx)

		status := stdconv.Itoa(ctx.Response.StatusCode())
		m.metrics.IncStatus(path, method, status)
		m.metrics.IncTotal(path, method, status)

		m.metrics.FlushResponseTimeTimer(timer)
	}
}

// routeOf keeps label cardinality bounded: requests under a collapsed prefix share one label.
func (m *PrometheusMetrics) routeOf(ctx *fasthttp.RequestCtx) string {
	path := strconv.B2S(ctx.Path())
	for _, prefix := range m.collapse {
		if strings.HasPrefix(path, prefix) {
			return prefix
		}
	}
	return path
}
