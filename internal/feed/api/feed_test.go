package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/engine"
	"github.com/Borislavv/infinite-feed/pkg/mock"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newFeedRouter(t *testing.T) *router.Router {
	t.Helper()

	cfg := config.Default()
	cfg.Feed.Polling.Enabled = false
	cfg.Feed.Load.Settle = 10 * time.Millisecond
	cfg.Feed.Lock.Linger = 10 * time.Millisecond

	f, err := engine.New(context.Background(), cfg, mock.NewSource(cfg), metrics.New())
	require.NoError(t, err)
	f.Start()
	t.Cleanup(f.Close)

	r := router.New()
	NewFeedController(context.Background(), f).AddRoute(r)
	return r
}

func call(r *router.Router, method, uri, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	r.Handler(ctx)
	return ctx
}

func TestFeedController_PullClientFlow(t *testing.T) {
	r := newFeedRouter(t)

	ctx := call(r, fasthttp.MethodPost, MountPath, `{"viewportHeight":300}`)
	require.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode())

	call(r, fasthttp.MethodPost, ScrollPath, `{"scrollTop":50,"scrollHeight":550,"clientHeight":300}`)
	call(r, fasthttp.MethodPost, ScrollPath, `{"scrollTop":0,"scrollHeight":550,"clientHeight":300}`)

	var received []float64
	assert.Eventually(t, func() bool {
		ctx := call(r, fasthttp.MethodGet, CommandsPath, "")
		var resp struct {
			Commands []struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"commands"`
		}
		if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
			return false
		}
		for _, c := range resp.Commands {
			received = append(received, c.Y)
		}
		for _, y := range received {
			if y == 330 {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	ctx = call(r, fasthttp.MethodGet, WindowPath, "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var snapshot struct {
		Length int `json:"length"`
		Window struct {
			Start int `json:"startIndex"`
			End   int `json:"endIndex"`
		} `json:"window"`
		Items []struct {
			ID       string `json:"id"`
			Content  string `json:"content"`
			ImageRef string `json:"imageRef"`
		} `json:"items"`
		Mounted bool `json:"mounted"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &snapshot))
	assert.Equal(t, 8, snapshot.Length)
	assert.True(t, snapshot.Mounted)
	assert.Len(t, snapshot.Items, snapshot.Window.End-snapshot.Window.Start)
	assert.NotEmpty(t, snapshot.Items[0].ImageRef)

	ctx = call(r, fasthttp.MethodDelete, MountPath, "")
	assert.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode())
}

func TestFeedController_Inputs(t *testing.T) {
	r := newFeedRouter(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"wheel", WheelPath, `{"deltaY":3,"unit":"lines"}`, fasthttp.StatusAccepted},
		{"wheel default unit", WheelPath, `{"deltaY":-10}`, fasthttp.StatusAccepted},
		{"wheel unknown unit", WheelPath, `{"deltaY":3,"unit":"parsecs"}`, fasthttp.StatusBadRequest},
		{"key", KeyPath, `{"key":"PageDown"}`, fasthttp.StatusAccepted},
		{"key unknown", KeyPath, `{"key":"Escape"}`, fasthttp.StatusBadRequest},
		{"malformed", ScrollPath, `{"scrollTop":`, fasthttp.StatusBadRequest},
	}
	for _, c := range cases {
		ctx := call(r, fasthttp.MethodPost, c.path, c.body)
		assert.Equal(t, c.status, ctx.Response.StatusCode(), c.name)
	}
}

func TestFeedController_Polling(t *testing.T) {
	r := newFeedRouter(t)

	ctx := call(r, fasthttp.MethodPost, "/api/v1/feed/polling/on", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"polling":true}`, string(ctx.Response.Body()))

	ctx = call(r, fasthttp.MethodPost, "/api/v1/feed/polling/sometimes", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}
