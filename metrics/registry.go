package metrics

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps dotted names such as "executor.calls" to metrics. Lookups
// create the metric on first use.
type Registry struct {
	mu      sync.Mutex
	metrics map[string]any
}

// DefaultRegistry backs the metrics declared in standard.go.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]any)}
}

// lookup returns the metric registered under name, creating it with mk. A
// name reused for a different metric type panics: that is a programming
// error caught at init.
func lookup[T any](r *Registry, name string, mk func() *T) *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok {
		t, ok := m.(*T)
		if !ok {
			panic(fmt.Sprintf("metrics: %s registered as %T", name, m))
		}
		return t
	}
	t := mk()
	r.metrics[name] = t
	return t
}

func (r *Registry) Counter(name string) *Counter {
	return lookup(r, name, func() *Counter { return new(Counter) })
}

func (r *Registry) Gauge(name string) *Gauge {
	return lookup(r, name, func() *Gauge { return new(Gauge) })
}

func (r *Registry) Histogram(name string) *Histogram {
	return lookup(r, name, func() *Histogram { return new(Histogram) })
}

// CounterVec returns the vector under name. The label given on first
// registration wins.
func (r *Registry) CounterVec(name, label string) *CounterVec {
	return lookup(r, name, func() *CounterVec { return &CounterVec{label: label} })
}

// each visits every metric in name order.
func (r *Registry) each(fn func(name string, m any)) {
	r.mu.Lock()
	names := slices.Sorted(maps.Keys(r.metrics))
	ms := make([]any, len(names))
	for i, n := range names {
		ms[i] = r.metrics[n]
	}
	r.mu.Unlock()
	for i, n := range names {
		fn(n, ms[i])
	}
}
