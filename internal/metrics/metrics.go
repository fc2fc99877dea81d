// Package metrics exposes prometheus instrumentation for the renderer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors used across the engine. Construct one
// per process and inject it; a nil *Metrics is safe to call.
type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	TemplateLoads  prometheus.Counter
	RenderDuration *prometheus.HistogramVec
	RenderErrors   *prometheus.CounterVec
	Registry       *prometheus.Registry
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidforge_cache_hits_total",
			Help: "Cache hits by category.",
		}, []string{"category"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidforge_cache_misses_total",
			Help: "Cache misses by category.",
		}, []string{"category"}),
		TemplateLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "liquidforge_template_loads_total",
			Help: "Template fetches that reached object storage.",
		}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "liquidforge_render_duration_seconds",
			Help:    "Full page render duration by page type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"page_type"}),
		RenderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidforge_render_errors_total",
			Help: "Render failures by error type.",
		}, []string{"type"}),
	}
}

// CacheHit records a cache hit. Safe on nil receivers.
func (m *Metrics) CacheHit(category string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(category).Inc()
}

// CacheMiss records a cache miss. Safe on nil receivers.
func (m *Metrics) CacheMiss(category string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(category).Inc()
}

// TemplateLoad records a storage-level template fetch.
func (m *Metrics) TemplateLoad() {
	if m == nil {
		return
	}
	m.TemplateLoads.Inc()
}

// ObserveRender records a page render duration in seconds.
func (m *Metrics) ObserveRender(pageType string, seconds float64) {
	if m == nil {
		return
	}
	m.RenderDuration.WithLabelValues(pageType).Observe(seconds)
}

// RenderError records a render failure.
func (m *Metrics) RenderError(errType string) {
	if m == nil {
		return
	}
	m.RenderErrors.WithLabelValues(errType).Inc()
}
