package tui

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/engine"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/physics"
	"github.com/Borislavv/infinite-feed/pkg/window"
	ui "github.com/gizak/termui/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	wheels  []model.WheelInput
	keys    []model.Key
	polling []bool
	latest  engine.Snapshot
}

func (f *fakeFeed) Subscribe(string, chan<- engine.Snapshot) {}
func (f *fakeFeed) Unsubscribe(string) uint64                { return 0 }
func (f *fakeFeed) Latest() engine.Snapshot                  { return f.latest }
func (f *fakeFeed) Mount(model.Mount, float64) bool          { return true }
func (f *fakeFeed) Unmount() bool                            { return true }
func (f *fakeFeed) Wheel(in model.WheelInput) bool {
	f.wheels = append(f.wheels, in)
	return true
}
func (f *fakeFeed) Key(k model.Key) bool {
	f.keys = append(f.keys, k)
	return true
}
func (f *fakeFeed) SetPolling(on bool) { f.polling = append(f.polling, on) }

func TestView_HandleEvent(t *testing.T) {
	feed := &fakeFeed{latest: engine.Snapshot{Polling: true}}
	v := NewView(context.Background(), feed, 300)

	for _, id := range []string{"<MouseWheelUp>", "<MouseWheelDown>", "<Up>", "j", "<PageDown>", "<Home>", "G", "p"} {
		assert.False(t, v.handleEvent(ui.Event{ID: id}), id)
	}

	assert.Equal(t, []model.WheelInput{
		{DeltaY: -wheelLines, Unit: model.Lines},
		{DeltaY: wheelLines, Unit: model.Lines},
	}, feed.wheels)
	assert.Equal(t, []model.Key{model.ArrowUp, model.ArrowDown, model.PageDown, model.Home, model.End}, feed.keys)
	assert.Equal(t, []bool{false}, feed.polling)

	assert.True(t, v.handleEvent(ui.Event{ID: "h"}))
	assert.True(t, v.state.helpVisible)

	v.handleEvent(ui.Event{ID: "q"})
	select {
	case <-v.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("q did not stop the view")
	}
}

func TestView_Mount(t *testing.T) {
	v := NewView(context.Background(), &fakeFeed{}, 300)

	require.NoError(t, v.ScrollTo(model.ScrollToY(330)))
	assert.Equal(t, 330.0, v.Rendered())

	v.closed.Store(true)
	assert.ErrorIs(t, v.ScrollTo(model.ScrollToY(0)), model.ErrNotMounted)
	assert.Equal(t, 330.0, v.Rendered())
}

func TestItemRows_MarksVisibleItems(t *testing.T) {
	items := make([]model.FeedItem, 7)
	for i := range items {
		items[i] = model.FeedItem{Content: "Item", ImageRef: "myprotocol://assets/city.jpg"}
	}
	s := engine.Snapshot{
		Window:   window.Range{Start: 1, End: 8},
		Items:    items,
		Scroll:   physics.ScrollState{Position: 330},
		Length:   8,
		Content:  880,
		Viewport: 300,
	}

	rows, first := itemRows(s)
	require.Len(t, rows, 7)
	// 330..630 covers indexes 3, 4 and 5
	assert.Equal(t, 2, first)
	for i, row := range rows {
		visible := i >= 2 && i <= 4
		assert.Equal(t, visible, row[0] == '>', row)
	}
}

func TestStatusText(t *testing.T) {
	text := statusText(engine.Snapshot{Length: 8, Cap: 500, Polling: true, Motion: "at-rest", Direction: "none"})
	assert.Contains(t, text, "8 / 500")
	assert.Contains(t, text, "polling    on")
	assert.Contains(t, text, "lock       free")
}

func TestView_CollectMetrics(t *testing.T) {
	v := NewView(context.Background(), &fakeFeed{}, 300)
	now := time.Now()

	v.collect(bytes.NewBufferString("# TYPE feed_buffer_length gauge\nfeed_buffer_length 8\nfeed_loads_total{edge=\"top\"} 2\nbroken line here\n"), now)
	v.collect(bytes.NewBufferString("feed_buffer_length 11\n"), now.Add(time.Second))

	assert.Equal(t, []float64{8, 11}, v.metrics[bufferLengthKey].pts())
	assert.Equal(t, []float64{2}, v.metrics[topLoadsKey].pts())

	v.collect(bytes.NewBufferString("feed_buffer_length 12\n"), now.Add(metricsWindow+2*time.Second))
	assert.Equal(t, []float64{12}, v.metrics[bufferLengthKey].pts())
}
