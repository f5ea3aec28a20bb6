// Package tui renders the feed in a terminal and feeds keyboard and mouse input back into it.
package tui

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/engine"
	"github.com/Borislavv/infinite-feed/pkg/model"
	metrics2 "github.com/VictoriaMetrics/metrics"
	ui "github.com/gizak/termui/v3"
)

const (
	subscriberID  = "tui"
	wheelLines    = 3
	metricsWindow = 5 * time.Minute
)

// Feed is the part of the engine the view drives.
type Feed interface {
	Subscribe(id string, ch chan<- engine.Snapshot)
	Unsubscribe(id string) uint64
	Latest() engine.Snapshot
	Mount(m model.Mount, viewportHeight float64) bool
	Unmount() bool
	Wheel(in model.WheelInput) bool
	Key(k model.Key) bool
	SetPolling(on bool)
}

type ViewState struct {
	helpVisible bool
}

// View is a terminal render layer. It is also the feed mount: scroll commands land in rendered.
type View struct {
	ctx      context.Context
	cancel   context.CancelFunc
	feed     Feed
	viewport float64
	snapshot engine.Snapshot
	rendered atomic.Uint64 // float64 bits of the last commanded position
	closed   atomic.Bool
	metrics  map[string]*MetricBuffer
	panels   []Panel
	state    ViewState
}

func NewView(ctx context.Context, feed Feed, viewportHeight float64) *View {
	ctx, cancel := context.WithCancel(ctx)
	return &View{
		ctx:      ctx,
		cancel:   cancel,
		feed:     feed,
		viewport: viewportHeight,
		snapshot: feed.Latest(),
		metrics:  make(map[string]*MetricBuffer),
		panels: []Panel{
			NewItemsPanel(),
			NewStatusPanel(),
			NewPlotPanel("Buffer Length", bufferLengthKey),
			NewMultiPlotPanel("Loads", []string{topLoadsKey, bottomLoadsKey, pollAppendsKey}),
			NewBottomPanel(),
			NewHelpPanel(),
		},
	}
}

// ScrollTo implements model.Mount.
func (v *View) ScrollTo(cmd model.ScrollCommand) error {
	if v.closed.Load() {
		return model.ErrNotMounted
	}
	v.rendered.Store(math.Float64bits(cmd.Y))
	return nil
}

// Rendered returns the position last commanded by the feed.
func (v *View) Rendered() float64 {
	return math.Float64frombits(v.rendered.Load())
}

// Run takes over the terminal until the context is done or the user quits.
func (v *View) Run() error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("termui init failed: %w", err)
	}
	defer func() {
		ui.Clear()
		ui.Close()
		fmt.Println("[tui] released terminal")
	}()

	snapshots := make(chan engine.Snapshot, 16)
	v.feed.Subscribe(subscriberID, snapshots)
	v.feed.Mount(v, v.viewport)
	defer func() {
		v.closed.Store(true)
		v.feed.Unmount()
		v.feed.Unsubscribe(subscriberID)
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	events := ui.PollEvents()
	v.render()

	for {
		select {
		case <-v.ctx.Done():
			return nil
		case e := <-events:
			if redraw := v.handleEvent(e); redraw {
				v.render()
			}
		case s := <-snapshots:
			v.snapshot = s
			v.render()
		case now := <-ticker.C:
			v.updateMetrics(now)
			v.render()
		}
	}
}

func (v *View) Stop() {
	v.cancel()
}

// handleEvent translates terminal events into feed inputs. Returns true if the view must be redrawn.
func (v *View) handleEvent(e ui.Event) bool {
	switch e.ID {
	case "q", "Q", "<C-c>":
		v.Stop()
	case "h":
		v.state.helpVisible = !v.state.helpVisible
		return true
	case "p":
		v.feed.SetPolling(!v.snapshot.Polling)
	case "<MouseWheelUp>":
		v.feed.Wheel(model.WheelInput{DeltaY: -wheelLines, Unit: model.Lines})
	case "<MouseWheelDown>":
		v.feed.Wheel(model.WheelInput{DeltaY: wheelLines, Unit: model.Lines})
	case "<Up>", "k":
		v.feed.Key(model.ArrowUp)
	case "<Down>", "j":
		v.feed.Key(model.ArrowDown)
	case "<PageUp>":
		v.feed.Key(model.PageUp)
	case "<PageDown>", "<Space>":
		v.feed.Key(model.PageDown)
	case "<Home>", "g":
		v.feed.Key(model.Home)
	case "<End>", "G":
		v.feed.Key(model.End)
	case "<Resize>":
		ui.Clear()
		return true
	}
	return false
}

func (v *View) updateMetrics(now time.Time) {
	var buf bytes.Buffer
	metrics2.WritePrometheus(&buf, false)
	v.collect(&buf, now)
}

func (v *View) collect(buf *bytes.Buffer, now time.Time) {
	s := bufio.NewScanner(buf)
	for s.Scan() {
		l := s.Text()
		if strings.HasPrefix(l, "#") {
			continue
		}
		f := strings.Fields(l)
		if len(f) != 2 {
			continue
		}
		val, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			continue
		}
		v.getOrCreateMetric(f[0]).Append(now, val, metricsWindow)
	}
}

func (v *View) getOrCreateMetric(name string) *MetricBuffer {
	if buf, ok := v.metrics[name]; ok {
		return buf
	}
	buf := &MetricBuffer{}
	v.metrics[name] = buf
	return buf
}

func (v *View) render() {
	w, h := ui.TerminalDimensions()
	grid := ui.NewGrid()
	grid.SetRect(0, 0, w, h)

	var left, right, bottom []interface{}
	for _, p := range v.panels {
		if hp, ok := p.(*HelpPanel); ok {
			hp.SetVisible(v.state.helpVisible)
		}
		p.Update(v.snapshot, v.metrics)

		switch p.Name() {
		case itemsPanelName:
			left = append(left, ui.NewRow(1, p.Draw()))
		case statusPanelName:
			right = append(right, ui.NewRow(0.4, p.Draw()))
		case "Buffer Length", "Loads":
			right = append(right, ui.NewRow(0.3, p.Draw()))
		case bottomPanelName:
			bottom = append(bottom, ui.NewRow(1, p.Draw()))
		case helpPanelName:
			if v.state.helpVisible {
				left = append(left[:0], ui.NewRow(1, p.Draw()))
			}
		}
	}

	grid.Set(
		ui.NewRow(0.9,
			ui.NewCol(0.6, left...),
			ui.NewCol(0.4, right...),
		),
		ui.NewRow(0.1, bottom...),
	)
	ui.Render(grid)
}
