package api

import (
	"context"
	"encoding/json"
	"github.com/Borislavv/infinite-feed/pkg/engine"
	serverutils "github.com/Borislavv/infinite-feed/pkg/http/server/utils"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/fasthttp/router"
	"github.com/savsgio/gotils/strings"
	"github.com/valyala/fasthttp"
	"time"
)

const (
	WindowPath   = "/api/v1/feed/window"
	ScrollPath   = "/api/v1/feed/scroll"
	WheelPath    = "/api/v1/feed/wheel"
	KeyPath      = "/api/v1/feed/key"
	MountPath    = "/api/v1/feed/mount"
	CommandsPath = "/api/v1/feed/commands"
	PollingPath  = "/api/v1/feed/polling/{state}"

	commandQueueSize = 64
	snapshotTimeout  = time.Second
)

var pollingStates = []string{"on", "off"}

// Feed is the part of the engine exposed over HTTP.
type Feed interface {
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	Observe(obs model.Observation) bool
	Wheel(in model.WheelInput) bool
	Key(k model.Key) bool
	Mount(m model.Mount, viewportHeight float64) bool
	Unmount() bool
	SetPolling(on bool)
}

// FeedController lets a pull-based render client drive the feed: it posts inputs,
// reads the window and drains the scroll commands queued for it.
type FeedController struct {
	ctx   context.Context
	feed  Feed
	queue *model.QueueMount
}

func NewFeedController(ctx context.Context, feed Feed) *FeedController {
	return &FeedController{ctx: ctx, feed: feed, queue: model.NewQueueMount(commandQueueSize)}
}

type wheelRequest struct {
	DeltaY float64 `json:"deltaY"`
	Unit   string  `json:"unit"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type mountRequest struct {
	ViewportHeight float64 `json:"viewportHeight"`
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type commandsResponse struct {
	Commands []model.ScrollCommand `json:"commands"`
}

type pollingResponse struct {
	Polling bool `json:"polling"`
}

// Window handles GET /api/v1/feed/window.
func (c *FeedController) Window(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := context.WithTimeout(c.ctx, snapshotTimeout)
	defer cancel()

	snapshot, err := c.feed.Snapshot(reqCtx)
	if err != nil {
		serverutils.WriteError(ctx, fasthttp.StatusServiceUnavailable, err.Error())
		return
	}
	_ = serverutils.WriteJSON(ctx, fasthttp.StatusOK, snapshot)
}

// Scroll handles POST /api/v1/feed/scroll with an observation body.
func (c *FeedController) Scroll(ctx *fasthttp.RequestCtx) {
	var obs model.Observation
	if !decode(ctx, &obs) {
		return
	}
	accepted(ctx, c.feed.Observe(obs))
}

// Wheel handles POST /api/v1/feed/wheel.
func (c *FeedController) Wheel(ctx *fasthttp.RequestCtx) {
	var req wheelRequest
	if !decode(ctx, &req) {
		return
	}
	unit, err := model.ParseDeltaUnit(req.Unit)
	if err != nil {
		serverutils.WriteError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	accepted(ctx, c.feed.Wheel(model.WheelInput{DeltaY: req.DeltaY, Unit: unit}))
}

// Key handles POST /api/v1/feed/key.
func (c *FeedController) Key(ctx *fasthttp.RequestCtx) {
	var req keyRequest
	if !decode(ctx, &req) {
		return
	}
	key, err := model.ParseKey(req.Key)
	if err != nil {
		serverutils.WriteError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	accepted(ctx, c.feed.Key(key))
}

// Mount handles POST /api/v1/feed/mount: scroll commands are queued for the client from now on.
func (c *FeedController) Mount(ctx *fasthttp.RequestCtx) {
	var req mountRequest
	if len(ctx.PostBody()) > 0 && !decode(ctx, &req) {
		return
	}
	c.queue.Drain()
	accepted(ctx, c.feed.Mount(c.queue, req.ViewportHeight))
}

// Unmount handles DELETE /api/v1/feed/mount.
func (c *FeedController) Unmount(ctx *fasthttp.RequestCtx) {
	accepted(ctx, c.feed.Unmount())
}

// Commands handles GET /api/v1/feed/commands and empties the queue.
func (c *FeedController) Commands(ctx *fasthttp.RequestCtx) {
	_ = serverutils.WriteJSON(ctx, fasthttp.StatusOK, commandsResponse{Commands: c.queue.Drain()})
}

// Polling handles POST /api/v1/feed/polling/{on|off}.
func (c *FeedController) Polling(ctx *fasthttp.RequestCtx) {
	state, _ := ctx.UserValue("state").(string)
	if !strings.Include(pollingStates, state) {
		serverutils.WriteError(ctx, fasthttp.StatusBadRequest, "polling state must be on or off")
		return
	}
	on := state == "on"
	c.feed.SetPolling(on)
	_ = serverutils.WriteJSON(ctx, fasthttp.StatusOK, pollingResponse{Polling: on})
}

func (c *FeedController) AddRoute(r *router.Router) {
	r.GET(WindowPath, c.Window)
	r.POST(ScrollPath, c.Scroll)
	r.POST(WheelPath, c.Wheel)
	r.POST(KeyPath, c.Key)
	r.POST(MountPath, c.Mount)
	r.DELETE(MountPath, c.Unmount)
	r.GET(CommandsPath, c.Commands)
	r.POST(PollingPath, c.Polling)
}

func decode(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		serverutils.WriteError(ctx, fasthttp.StatusBadRequest, "malformed json body: "+err.Error())
		return false
	}
	return true
}

func accepted(ctx *fasthttp.RequestCtx, ok bool) {
	status := fasthttp.StatusAccepted
	if !ok {
		status = fasthttp.StatusServiceUnavailable
	}
	_ = serverutils.WriteJSON(ctx, status, acceptedResponse{Accepted: ok})
}
