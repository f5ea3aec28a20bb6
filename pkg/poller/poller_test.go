package poller

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/stretchr/testify/assert"
)

type fresh struct{}

func (fresh) Fresh(length int) model.FeedItem {
	return model.FeedItem{ID: strconv.Itoa(length + 1), Content: "New Item " + strconv.Itoa(length+1)}
}

type sliceSink struct {
	mu     sync.Mutex
	items  []model.FeedItem
	refuse bool
}

func (s *sliceSink) Offer(build func(length int) model.FeedItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return false
	}
	s.items = append(s.items, build(len(s.items)))
	return true
}

func (s *sliceSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func run(t *testing.T, p *Poller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestPoller_PublishesOnEveryInterval(t *testing.T) {
	sink := &sliceSink{}
	p := New(config.Polling{Enabled: true, Interval: 5 * time.Millisecond}, fresh{}, sink, metrics.New())
	run(t, p)

	assert.Eventually(t, func() bool { return sink.len() >= 3 }, time.Second, time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "New Item 1", sink.items[0].Content)
	assert.Equal(t, "New Item 3", sink.items[2].Content)
}

func TestPoller_PauseAndResume(t *testing.T) {
	sink := &sliceSink{}
	p := New(config.Polling{Enabled: false, Interval: 2 * time.Millisecond}, fresh{}, sink, metrics.New())
	assert.False(t, p.Active())
	run(t, p)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.len())

	p.Resume()
	assert.Eventually(t, func() bool { return sink.len() > 0 }, time.Second, time.Millisecond)

	p.Pause()
	time.Sleep(10 * time.Millisecond) // let an in-flight tick land
	n := sink.len()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, sink.len())
}

func TestPoller_RefusedItemsAreSkipped(t *testing.T) {
	sink := &sliceSink{refuse: true}
	p := New(config.Polling{Enabled: true, Interval: 2 * time.Millisecond}, fresh{}, sink, metrics.New())
	run(t, p)

	assert.Eventually(t, func() bool { return p.skipped.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, sink.len())
}
