// Package metrics holds the process counters of the sale engine and
// renders them in the Prometheus text format. Metrics are plain atomics
// owned by a Registry; there is no background collection.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter only goes up.
type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc() { c.n.Add(1) }

// Add adds n. Non-positive n is dropped.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.n.Add(n)
	}
}

func (c *Counter) Value() int64 { return c.n.Load() }

// Gauge holds the latest value set.
type Gauge struct{ n atomic.Int64 }

func (g *Gauge) Set(v int64)  { g.n.Store(v) }
func (g *Gauge) Add(d int64)  { g.n.Add(d) }
func (g *Gauge) Value() int64 { return g.n.Load() }

// Histogram summarizes observations by count, sum and extremes. It keeps
// no buckets.
type Histogram struct {
	mu    sync.Mutex
	stats Stats
}

// Stats is a point-in-time view of a Histogram.
type Stats struct {
	Count    int64
	Sum      float64
	Min, Max float64
}

// Mean is zero for an empty summary.
func (s Stats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &h.stats
	if s.Count == 0 {
		s.Min, s.Max = v, v
	} else {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Count++
	s.Sum += v
}

// ObserveSince records the microseconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) time.Duration {
	d := time.Since(start)
	h.Observe(float64(d.Microseconds()))
	return d
}

func (h *Histogram) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// CounterVec is a set of counters keyed by the value of one label.
type CounterVec struct {
	label string
	byVal sync.Map // string -> *Counter
}

// With returns the counter for a label value, creating it on first use.
func (v *CounterVec) With(value string) *Counter {
	if c, ok := v.byVal.Load(value); ok {
		return c.(*Counter)
	}
	c, _ := v.byVal.LoadOrStore(value, new(Counter))
	return c.(*Counter)
}

// Label is the name of the partitioning label.
func (v *CounterVec) Label() string { return v.label }

// Values copies the current count of every label value.
func (v *CounterVec) Values() map[string]int64 {
	out := make(map[string]int64)
	v.byVal.Range(func(k, c any) bool {
		out[k.(string)] = c.(*Counter).Value()
		return true
	})
	return out
}
