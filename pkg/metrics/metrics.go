// Package metrics is a small metrics registry exposed in the Prometheus text
// exposition format. It covers counters, gauges, and histograms with optional
// labels baked into the series name.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are latency buckets in seconds, sized for model API calls.
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Counter only goes up.
type Counter struct{ v atomic.Int64 }

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge goes up and down.
type Gauge struct{ v atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.v.Store(n) }
func (g *Gauge) Inc()         { g.v.Add(1) }
func (g *Gauge) Dec()         { g.v.Add(-1) }
func (g *Gauge) Value() int64 { return g.v.Load() }

// Histogram records a value distribution over fixed buckets.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.total++
	for i, b := range h.bounds {
		if v <= b {
			h.counts[i]++
			break
		}
	}
	h.mu.Unlock()
}

// Since observes the seconds elapsed from t.
func (h *Histogram) Since(t time.Time) {
	h.Observe(time.Since(t).Seconds())
}

func (h *Histogram) snapshot() ([]float64, []uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := make([]uint64, len(h.counts))
	copy(c, h.counts)
	return h.bounds, c, h.sum, h.total
}

// series is one named instance of a metric, labels included.
type series struct {
	name string // full name, e.g. foo{mode="documents"}
	c    *Counter
	g    *Gauge
	h    *Histogram
}

// family groups the series sharing a base name.
type family struct {
	typ    string
	help   string
	series []*series
}

// Registry holds named metrics.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
	order    []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// Label appends label pairs to a metric name so each combination becomes its
// own series, e.g. Label("chat_requests_total", "mode", "documents").
func Label(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i >= 0 {
		return name[:i]
	}
	return name
}

func (r *Registry) lookup(name, typ, help string) *series {
	base := baseName(name)
	fam, ok := r.families[base]
	if !ok {
		fam = &family{typ: typ, help: help}
		r.families[base] = fam
		r.order = append(r.order, base)
	}
	for _, s := range fam.series {
		if s.name == name {
			return s
		}
	}
	s := &series{name: name}
	fam.series = append(fam.series, s)
	return s
}

// Counter returns (or creates) the counter for name.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(name, "counter", help)
	if s.c == nil {
		s.c = &Counter{}
	}
	return s.c
}

// Gauge returns (or creates) the gauge for name.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(name, "gauge", help)
	if s.g == nil {
		s.g = &Gauge{}
	}
	return s.g
}

// Histogram returns (or creates) the histogram for name. Nil buckets use
// DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(name, "histogram", help)
	if s.h == nil {
		bounds := make([]float64, len(buckets))
		copy(bounds, buckets)
		sort.Float64s(bounds)
		s.h = &Histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
	}
	return s.h
}

// Render writes every family in the Prometheus text format, in registration
// order.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, base := range r.order {
		fam := r.families[base]
		if fam.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, fam.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, fam.typ)
		for _, s := range fam.series {
			switch {
			case s.c != nil:
				fmt.Fprintf(&b, "%s %d\n", s.name, s.c.Value())
			case s.g != nil:
				fmt.Fprintf(&b, "%s %d\n", s.name, s.g.Value())
			case s.h != nil:
				renderHistogram(&b, base, s)
			}
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, base string, s *series) {
	bounds, counts, sum, total := s.h.snapshot()
	labels := seriesLabels(s.name)
	cumulative := uint64(0)
	for i, bound := range bounds {
		cumulative += counts[i]
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", base, bound, joined(labels), cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, joined(labels), total)
	fmt.Fprintf(b, "%s_sum%s %g\n", base, wrapped(labels), sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, wrapped(labels), total)
}

// seriesLabels returns the inner label list of a name like foo{k="v"}.
func seriesLabels(name string) string {
	i := strings.IndexByte(name, '{')
	if i < 0 {
		return ""
	}
	return name[i+1 : len(name)-1]
}

func joined(labels string) string {
	if labels == "" {
		return ""
	}
	return "," + labels
}

func wrapped(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// Handler serves the registry as a /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
