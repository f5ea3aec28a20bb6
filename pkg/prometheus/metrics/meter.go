package metrics

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics/keyword"
	"github.com/VictoriaMetrics/metrics"
)

const (
	EdgeTop    = "top"
	EdgeBottom = "bottom"
)

// Meter collects feed engine and HTTP API counters.
type Meter interface {
	IncTotal(path string, method string, status string)
	IncStatus(path string, method string, status string)
	NewResponseTimeTimer(path string, method string) *Timer
	FlushResponseTimeTimer(t *Timer)

	IncLoad(edge string)
	IncLoadDuplicate(edge string)
	IncLoadFailure(edge string)
	AddTrimmed(n int)
	IncConfigError()
	IncCorrection()
	IncRestoreRetry()
	IncRestoreFailure()
	IncPollAppend()
	IncPollSkipped()
	IncDroppedInput(kind string)
	SetBufferLength(n int)
	IncAssetRequest(status string)
	IncAssetCacheHit()
	IncAssetCacheMiss()
	IncSnapshot(delivered bool)
}

type Metrics struct{}

func New() *Metrics {
	return &Metrics{}
}

var statuses [600]string

func init() {
	for i := 100; i <= 599; i++ {
		statuses[i] = strconv.Itoa(i)
	}
}

func (m *Metrics) IncLoad(edge string)          { counter(keyword.Loads, "edge", edge).Inc() }
func (m *Metrics) IncLoadDuplicate(edge string) { counter(keyword.LoadDuplicates, "edge", edge).Inc() }
func (m *Metrics) IncLoadFailure(edge string)   { counter(keyword.LoadFailures, "edge", edge).Inc() }
func (m *Metrics) IncDroppedInput(kind string)  { counter(keyword.DroppedInputs, "kind", kind).Inc() }
func (m *Metrics) IncAssetRequest(status string) {
	counter(keyword.AssetRequests, "status", status).Inc()
}

func (m *Metrics) AddTrimmed(n int) {
	if n > 0 {
		metrics.GetOrCreateCounter(keyword.TrimmedItems).Add(n)
	}
}

func (m *Metrics) IncConfigError()    { metrics.GetOrCreateCounter(keyword.ConfigErrors).Inc() }
func (m *Metrics) IncCorrection()     { metrics.GetOrCreateCounter(keyword.ScrollCorrections).Inc() }
func (m *Metrics) IncRestoreRetry()   { metrics.GetOrCreateCounter(keyword.RestoreRetries).Inc() }
func (m *Metrics) IncRestoreFailure() { metrics.GetOrCreateCounter(keyword.RestoreFailures).Inc() }
func (m *Metrics) IncPollAppend()     { metrics.GetOrCreateCounter(keyword.PollAppends).Inc() }
func (m *Metrics) IncPollSkipped()    { metrics.GetOrCreateCounter(keyword.PollSkipped).Inc() }
func (m *Metrics) IncAssetCacheHit()  { metrics.GetOrCreateCounter(keyword.AssetCacheHits).Inc() }
func (m *Metrics) IncAssetCacheMiss() { metrics.GetOrCreateCounter(keyword.AssetCacheMisses).Inc() }

func (m *Metrics) SetBufferLength(n int) {
	metrics.GetOrCreateGauge(keyword.BufferLength, nil).Set(float64(n))
}

func (m *Metrics) IncSnapshot(delivered bool) {
	if delivered {
		metrics.GetOrCreateCounter(keyword.SnapshotsDelivered).Inc()
		return
	}
	metrics.GetOrCreateCounter(keyword.SnapshotsDropped).Inc()
}

func counter(name, label, value string) *metrics.Counter {
	buf := getBuf()
	defer putBuf(buf)

	*buf = append(*buf, name...)
	*buf = append(*buf, '{')
	*buf = append(*buf, label...)
	*buf = append(*buf, `="`...)
	*buf = append(*buf, sanitize(value)...)
	*buf = append(*buf, `"}`...)

	return metrics.GetOrCreateCounter(string(*buf))
}

func (m *Metrics) IncTotal(path, method, status string) {
	safePath, safeMethod := sanitize(path), sanitize(method)

	buf := getBuf()
	defer putBuf(buf)

	if status != "" {
		*buf = append(*buf, keyword.TotalHttpResponsesMetricName...)
		*buf = append(*buf, `{path="`...)
		*buf = append(*buf, safePath...)
		*buf = append(*buf, `",method="`...)
		*buf = append(*buf, safeMethod...)
		*buf = append(*buf, `",status="`...)
		*buf = append(*buf, safeStatus(status)...)
		*buf = append(*buf, `"}`...)

		metrics.GetOrCreateCounter(string(*buf)).Inc()
		return
	}

	*buf = append(*buf, keyword.TotalHttpRequestsMetricName...)
	*buf = append(*buf, `{path="`...)
	*buf = append(*buf, safePath...)
	*buf = append(*buf, `",method="`...)
	*buf = append(*buf, safeMethod...)
	*buf = append(*buf, `"}`...)

	metrics.GetOrCreateCounter(string(*buf)).Inc()
}

func (m *Metrics) IncStatus(path, method, status string) {
	buf := getBuf()
	defer putBuf(buf)

	*buf = append(*buf, keyword.HttpResponseStatusesMetricName...)
	*buf = append(*buf, `{path="`...)
	*buf = append(*buf, sanitize(path)...)
	*buf = append(*buf, `",method="`...)
	*buf = append(*buf, sanitize(method)...)
	*buf = append(*buf, `",status="`...)
	*buf = append(*buf, safeStatus(status)...)
	*buf = append(*buf, `"}`...)

	metrics.GetOrCreateCounter(string(*buf)).Inc()
}

// safeStatus maps anything that is not a valid HTTP status onto "unknown" instead of panicking.
func safeStatus(status string) string {
	code, err := strconv.Atoi(status)
	if err != nil || code < 100 || code >= len(statuses) {
		return "unknown"
	}
	return statuses[code]
}

// Timer is a pooled response time tracker.
type Timer struct {
	start time.Time
	buf   *bytes.Buffer
}

var timerPool = sync.Pool{
	New: func() any {
		return &Timer{
			buf: bytes.NewBuffer(make([]byte, 0, 128)),
		}
	},
}

func (m *Metrics) NewResponseTimeTimer(path, method string) *Timer {
	t := timerPool.Get().(*Timer)
	t.start = time.Now()
	t.buf.Reset()

	t.buf.WriteString(keyword.HttpResponseTimeMsMetricName)
	t.buf.WriteString(`{path="`)
	t.buf.WriteString(sanitize(path))
	t.buf.WriteString(`",method="`)
	t.buf.WriteString(sanitize(method))
	t.buf.WriteString(`"}`)

	return t
}

func (m *Metrics) FlushResponseTimeTimer(t *Timer) {
	durationMs := float64(time.Since(t.start).Milliseconds())
	metrics.GetOrCreateHistogram(t.buf.String()).Update(durationMs)
	timerPool.Put(t)
}

// sanitize escapes quotes and backslashes in label values.
func sanitize(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

func getBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuf(b *[]byte) {
	*b = (*b)[:0]
	bufPool.Put(b)
}
