package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/buffer"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/physics"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/Borislavv/infinite-feed/pkg/scrolllock"
	"github.com/Borislavv/infinite-feed/pkg/task"
	"github.com/Borislavv/infinite-feed/pkg/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	older, newer atomic.Int32
	block        bool
}

func (s *stubSource) Older(ctx context.Context, _ *model.FeedItem, n int) ([]model.FeedItem, error) {
	s.older.Add(1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return batch("Older Item", n), nil
}

func (s *stubSource) Newer(ctx context.Context, _ *model.FeedItem, n int) ([]model.FeedItem, error) {
	s.newer.Add(1)
	return batch("Item", n), nil
}

func batch(prefix string, n int) []model.FeedItem {
	out := make([]model.FeedItem, n)
	for i := range out {
		out[i] = model.FeedItem{ID: fmt.Sprintf("%s-%d-%d", prefix, i, time.Now().UnixNano()), Content: fmt.Sprintf("%s %d", prefix, i+1)}
	}
	return out
}

// recorder is a mount that can be told to fail its first calls.
type recorder struct {
	mu    sync.Mutex
	cmds  []model.ScrollCommand
	fails int
	calls int
}

func (r *recorder) ScrollTo(cmd model.ScrollCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fails > 0 {
		r.fails--
		return model.ErrNotMounted
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recorder) commands() []model.ScrollCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ScrollCommand(nil), r.cmds...)
}

func (r *recorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fixture struct {
	ctrl   *Controller
	items  *buffer.Items
	lock   *scrolllock.Coordinator
	loop   *timeline.Loop
	tasks  *task.Registry
	mount  *recorder
	source *stubSource
}

func testConfig() *config.Feed {
	cfg := config.Default()
	cfg.Feed.Load.Settle = 50 * time.Millisecond
	cfg.Feed.Load.RestoreBackoff = time.Millisecond
	cfg.Feed.Lock.Linger = 30 * time.Millisecond
	return cfg
}

func newFixture(t *testing.T, cfg *config.Feed, max int) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	tasks := task.NewRegistry(ctx)
	loop := timeline.New(tasks, 64)
	go loop.Run(ctx)
	t.Cleanup(func() {
		tasks.Close()
		cancel()
	})

	items, err := buffer.New(max, batch("Item", min(5, max)))
	require.NoError(t, err)

	f := &fixture{
		items:  items,
		lock:   scrolllock.New(cfg.Feed.Lock.Tolerance),
		loop:   loop,
		tasks:  tasks,
		mount:  &recorder{},
		source: &stubSource{},
	}
	f.ctrl = New(cfg, f.items, f.lock, f.source, loop, f.mount, metrics.New(), nil)
	return f
}

func (f *fixture) on(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, f.loop.Do(context.Background(), fn))
}

func (f *fixture) length(t *testing.T) (n int) {
	f.on(t, func() { n = f.items.Len() })
	return n
}

func (f *fixture) idle() bool {
	top, bottom := f.ctrl.States()
	return top == Idle && bottom == Idle && !f.lock.Locked()
}

func TestController_TopLoadScenario(t *testing.T) {
	f := newFixture(t, testConfig(), 500)

	f.on(t, func() {
		f.ctrl.Observe(model.Observation{ScrollTop: 0, ScrollHeight: 550, ClientHeight: 300}, physics.Up)
	})

	top, _ := f.ctrl.States()
	assert.Equal(t, Loading, top)
	assert.Equal(t, scrolllock.State{Locked: true, Target: 0}, f.lock.State())

	assert.Eventually(t, func() bool { return f.length(t) == 8 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		cmds := f.mount.commands()
		return len(cmds) == 1 && cmds[0] == model.ScrollToY(330)
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)

	f.on(t, func() {
		first, _ := f.items.First()
		assert.Equal(t, "Older Item 1", first.Content)
	})
}

func TestController_OverscrolledTopEngagesAtZero(t *testing.T) {
	f := newFixture(t, testConfig(), 500)

	f.on(t, func() {
		f.ctrl.Observe(model.Observation{ScrollTop: -20, ScrollHeight: 550, ClientHeight: 300}, physics.Up)
	})
	assert.Equal(t, scrolllock.State{Locked: true, Target: 0}, f.lock.State())

	// no correction back to a negative offset
	f.on(t, func() {
		f.ctrl.Observe(model.Observation{ScrollTop: 0, ScrollHeight: 550, ClientHeight: 300}, physics.None)
	})
	assert.Empty(t, f.mount.commands())

	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)
	assert.Equal(t, []model.ScrollCommand{model.ScrollToY(330)}, f.mount.commands())
}

func TestController_LockAndEdgeReleaseTogether(t *testing.T) {
	f := newFixture(t, testConfig(), 500)

	f.on(t, func() { require.True(t, f.ctrl.TriggerTop(0)) })

	// seen from the timeline, the lock never frees before the top edge does
	deadline := time.Now().Add(time.Second)
	for !f.idle() && time.Now().Before(deadline) {
		f.on(t, func() {
			top, _ := f.ctrl.States()
			assert.Equal(t, top == Loading, f.lock.Locked())
		})
	}
	assert.True(t, f.idle())
}

func TestController_TargetFloorsAtMinScrollOffset(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Load.ItemsPerLoad = 1
	cfg.Feed.Window.ItemHeight = 10
	f := newFixture(t, cfg, 500)

	f.on(t, func() { assert.True(t, f.ctrl.TriggerTop(0)) })

	assert.Eventually(t, func() bool {
		cmds := f.mount.commands()
		return len(cmds) == 1 && cmds[0].Y == 50
	}, time.Second, 5*time.Millisecond)
}

func TestController_DuplicateTopTriggerIsIgnored(t *testing.T) {
	f := newFixture(t, testConfig(), 500)

	f.on(t, func() {
		assert.True(t, f.ctrl.TriggerTop(0))
		assert.False(t, f.ctrl.TriggerTop(0))
		f.ctrl.Observe(model.Observation{ScrollTop: 0, ScrollHeight: 550, ClientHeight: 300}, physics.Up)
	})

	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), f.source.older.Load())
	assert.Equal(t, 8, f.length(t))
}

func TestController_LockCorrection(t *testing.T) {
	f := newFixture(t, testConfig(), 500)
	require.True(t, f.lock.Engage("test", 330))

	obs := func(p float64) model.Observation {
		return model.Observation{ScrollTop: p, ScrollHeight: 2000, ClientHeight: 300}
	}

	f.on(t, func() { f.ctrl.Observe(obs(100), physics.Up) })
	assert.Equal(t, []model.ScrollCommand{model.ScrollToY(330)}, f.mount.commands())

	f.on(t, func() { f.ctrl.Observe(obs(330.5), physics.Down) })
	assert.Len(t, f.mount.commands(), 1, "within tolerance, no command")

	// edge triggers are suppressed while locked
	f.on(t, func() { f.ctrl.Observe(obs(0), physics.Up) })
	top, _ := f.ctrl.States()
	assert.Equal(t, Idle, top)
	assert.Len(t, f.mount.commands(), 2)
	assert.Equal(t, int32(0), f.source.older.Load())
}

func TestController_ObservationsAreCorrectedWhileLoadIsSuspended(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Load.Settle = 100 * time.Millisecond
	f := newFixture(t, cfg, 500)

	f.on(t, func() { require.True(t, f.ctrl.TriggerTop(0)) })
	assert.Eventually(t, func() bool { return f.length(t) == 8 }, time.Second, time.Millisecond)

	// still settling: the lock holds position 0
	f.on(t, func() {
		f.ctrl.Observe(model.Observation{ScrollTop: 42, ScrollHeight: 880, ClientHeight: 300}, physics.Down)
	})
	assert.Equal(t, []model.ScrollCommand{model.ScrollToY(0)}, f.mount.commands())

	assert.Eventually(t, func() bool {
		cmds := f.mount.commands()
		return len(cmds) == 2 && cmds[1].Y == 330
	}, time.Second, 5*time.Millisecond)
}

func TestController_RestoreRetries(t *testing.T) {
	f := newFixture(t, testConfig(), 500)
	f.mount.fails = 2

	f.on(t, func() { require.True(t, f.ctrl.TriggerTop(0)) })

	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, f.mount.callCount())
	assert.Equal(t, []model.ScrollCommand{model.ScrollToY(330)}, f.mount.commands())
}

func TestController_RestoreExhaustedIsNotFatal(t *testing.T) {
	f := newFixture(t, testConfig(), 500)
	f.mount.fails = 100

	f.on(t, func() { require.True(t, f.ctrl.TriggerTop(0)) })

	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, f.mount.callCount())
	assert.Empty(t, f.mount.commands())
	assert.Equal(t, 8, f.length(t))

	// the edge is usable again
	f.mount.mu.Lock()
	f.mount.fails = 0
	f.mount.mu.Unlock()
	f.on(t, func() { assert.True(t, f.ctrl.TriggerTop(0)) })
	assert.Eventually(t, func() bool { return f.length(t) == 11 }, time.Second, 5*time.Millisecond)
}

func TestController_BottomLoad(t *testing.T) {
	f := newFixture(t, testConfig(), 500)

	f.on(t, func() {
		f.ctrl.Observe(model.Observation{ScrollTop: 200, ScrollHeight: 550, ClientHeight: 300}, physics.Down)
	})

	assert.Eventually(t, func() bool { return f.length(t) == 8 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.mount.commands(), "bottom-load never moves the viewport")
	assert.False(t, f.lock.Locked())
}

func TestController_TriggersAreDirectionGated(t *testing.T) {
	f := newFixture(t, testConfig(), 500)

	f.on(t, func() {
		f.ctrl.Observe(model.Observation{ScrollTop: 0, ScrollHeight: 550, ClientHeight: 300}, physics.None)
		f.ctrl.Observe(model.Observation{ScrollTop: 0, ScrollHeight: 550, ClientHeight: 300}, physics.Down)
		f.ctrl.Observe(model.Observation{ScrollTop: 250, ScrollHeight: 550, ClientHeight: 300}, physics.Up)
		f.ctrl.Observe(model.Observation{ScrollTop: 10, ScrollHeight: 550, ClientHeight: 300}, physics.Up)
	})

	top, bottom := f.ctrl.States()
	assert.Equal(t, Idle, top)
	assert.Equal(t, Idle, bottom)
	assert.Equal(t, int32(0), f.source.older.Load())
	assert.Equal(t, int32(0), f.source.newer.Load())
}

func TestController_TeardownCancelsInFlightLoad(t *testing.T) {
	f := newFixture(t, testConfig(), 500)
	f.source.block = true

	f.on(t, func() { require.True(t, f.ctrl.TriggerTop(0)) })
	assert.Eventually(t, func() bool { return f.source.older.Load() == 1 }, time.Second, time.Millisecond)

	f.tasks.Close()

	assert.True(t, f.idle())
	assert.Equal(t, 5, f.length(t))
	assert.Empty(t, f.mount.commands())
}

func TestController_OversizedBatchLeavesBufferUntouched(t *testing.T) {
	f := newFixture(t, testConfig(), 2)
	before := f.length(t)

	f.on(t, func() { require.True(t, f.ctrl.TriggerTop(0)) })

	assert.Eventually(t, f.idle, time.Second, 5*time.Millisecond)
	assert.Equal(t, before, f.length(t))
	assert.Empty(t, f.mount.commands())
}
