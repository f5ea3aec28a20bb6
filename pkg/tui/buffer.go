package tui

import (
	"sync"
	"time"
)

// MetricBuffer keeps a sliding window of metric samples.
type MetricBuffer struct {
	points []dataPoint
	mu     sync.Mutex
}

type dataPoint struct {
	t time.Time
	v float64
}

func (m *MetricBuffer) Append(t time.Time, v float64, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tm := t.Add(-window)
	m.points = append(m.points, dataPoint{t, v})
	for len(m.points) > 0 && m.points[0].t.Before(tm) {
		m.points = m.points[1:]
	}
}

func (m *MetricBuffer) pts() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.points))
	for i, p := range m.points {
		out[i] = p.v
	}
	return out
}
