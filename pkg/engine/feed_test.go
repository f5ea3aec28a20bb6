package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/loader"
	"github.com/Borislavv/infinite-feed/pkg/mock"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	cmds []model.ScrollCommand
}

func (r *recorder) ScrollTo(cmd model.ScrollCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recorder) has(y float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cmds {
		if c.Y == y {
			return true
		}
	}
	return false
}

func testConfig() *config.Feed {
	cfg := config.Default()
	cfg.Feed.Polling.Enabled = false
	cfg.Feed.Load.Settle = 30 * time.Millisecond
	cfg.Feed.Load.RestoreBackoff = time.Millisecond
	cfg.Feed.Lock.Linger = 30 * time.Millisecond
	cfg.Feed.Physics.Frame = time.Millisecond
	return cfg
}

func startFeed(t *testing.T, cfg *config.Feed) *Feed {
	t.Helper()
	f, err := New(context.Background(), cfg, mock.NewSource(cfg), metrics.New())
	require.NoError(t, err)
	f.Start()
	t.Cleanup(f.Close)
	return f
}

func observe(f *Feed, top float64) {
	content := float64(f.Latest().Length) * f.cfg.Feed.Window.ItemHeight
	f.Observe(model.Observation{ScrollTop: top, ScrollHeight: content, ClientHeight: 300})
}

func idle(f *Feed) func() bool {
	return func() bool {
		s := f.Latest()
		return s.Top == loader.Idle && s.Bottom == loader.Idle && !s.Lock.Locked
	}
}

func TestFeed_TopLoadScenario(t *testing.T) {
	f := startFeed(t, testConfig())
	rec := &recorder{}
	require.True(t, f.Mount(rec, 300))

	observe(f, 50)
	observe(f, 0)

	assert.Eventually(t, func() bool { return f.Latest().Length == 8 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return rec.has(330) }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, idle(f), time.Second, 5*time.Millisecond)

	s, err := f.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 330.0, s.Scroll.Position)
	assert.Equal(t, "Older Item 0", s.Items[0].Content)
	// 330px / 110px = item 3, two items of overscan on each side
	assert.Equal(t, 1, s.Window.Start)
	assert.Equal(t, 8, s.Window.End)
}

func TestFeed_PollingNeverExceedsCap(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Polling.Enabled = true
	cfg.Feed.Polling.Interval = time.Millisecond
	f := startFeed(t, cfg)

	ch := make(chan Snapshot, 8192)
	f.Subscribe("cap", ch)

	assert.Eventually(t, func() bool { return f.Latest().Length == 500 }, 10*time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	f.SetPolling(false)

	assert.Equal(t, 500, f.Latest().Length)
	assert.Greater(t, f.Latest().Trimmed, uint64(0))
	for {
		select {
		case s := <-ch:
			require.LessOrEqual(t, s.Length, 500)
		default:
			return
		}
	}
}

func TestFeed_CloseCancelsInFlightLoad(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Source.Latency = time.Hour
	f, err := New(context.Background(), cfg, mock.NewSource(cfg), metrics.New())
	require.NoError(t, err)
	f.Start()

	f.Mount(&recorder{}, 300)
	observe(f, 50)
	observe(f, 0)
	assert.Eventually(t, func() bool { return f.Latest().Top == loader.Loading }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		f.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return while a load was in flight")
	}

	assert.Equal(t, 5, f.Latest().Length)
	assert.False(t, f.Observe(model.Observation{}))
	_, err = f.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFeed_WheelMovesAndComesToRest(t *testing.T) {
	f := startFeed(t, testConfig())
	rec := &recorder{}
	f.Mount(rec, 300)

	require.True(t, f.Wheel(model.WheelInput{DeltaY: 3, Unit: model.Lines}))

	assert.Eventually(t, func() bool {
		s := f.Latest()
		return s.Motion == "at-rest" && s.Scroll.Position > 0
	}, 2*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.cmds)
	for i := 1; i < len(rec.cmds); i++ {
		assert.GreaterOrEqual(t, rec.cmds[i].Y, rec.cmds[i-1].Y)
	}
}

func TestFeed_HomeAndEndSnap(t *testing.T) {
	f := startFeed(t, testConfig())
	rec := &recorder{}
	f.Mount(rec, 300)

	f.Key(model.End)
	assert.Eventually(t, func() bool { return rec.has(250) }, time.Second, time.Millisecond)
	// reaching the bottom loads more below
	assert.Eventually(t, func() bool { return f.Latest().Length == 8 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, idle(f), time.Second, 5*time.Millisecond)

	f.Key(model.Home)
	assert.Eventually(t, func() bool { return f.Latest().Length == 11 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return rec.has(330) }, time.Second, 5*time.Millisecond)
}

func TestFeed_ToleratesMissingMount(t *testing.T) {
	f := startFeed(t, testConfig())

	observe(f, 50)
	observe(f, 0)

	assert.Eventually(t, func() bool { return f.Latest().Length == 8 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, idle(f), time.Second, 5*time.Millisecond)
	assert.False(t, f.Latest().Mounted)
}

func TestFeed_SlowSubscriberDropsSnapshots(t *testing.T) {
	f := startFeed(t, testConfig())

	_, err := f.Snapshot(context.Background())
	require.NoError(t, err)

	ch := make(chan Snapshot) // nobody reads
	f.Subscribe("slow", ch)

	for i := 0; i < 5; i++ {
		require.True(t, f.Resize(float64(300+i)))
	}
	_, err = f.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), f.Unsubscribe("slow"))
	assert.Equal(t, 304.0, f.Latest().Viewport)
}
