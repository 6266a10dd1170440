// Package prometheus implements the observability hooks with Prometheus
// collectors.
package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/flowscope/pkg/observability"
)

const (
	metricsNamespace = "flowscope"
	layoutSubsystem  = "layout"
	graphSubsystem   = "graph"
	cacheSubsystem   = "cache"
)

// Hooks records layout, graph and cache events. One value implements all
// three hook interfaces.
type Hooks struct {
	layoutsTotal     *prometheus.CounterVec
	layoutDuration   *prometheus.HistogramVec
	layoutDiscarded  *prometheus.CounterVec
	layoutRequestLen *prometheus.HistogramVec

	transitionsTotal   *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	hyperEdges         prometheus.Gauge

	cacheOps   *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec
}

// NewHooks creates the collectors and registers them with reg.
func NewHooks(reg prometheus.Registerer) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		layoutsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: layoutSubsystem,
				Name:      "runs_total",
				Help:      "Total number of layout engine runs",
			},
			[]string{"engine", "status"}, // status: "success", "error"
		),
		layoutDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: layoutSubsystem,
				Name:      "duration_seconds",
				Help:      "Time spent inside the layout engine",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"engine"},
		),
		layoutDiscarded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: layoutSubsystem,
				Name:      "discarded_total",
				Help:      "Layout results dropped because the graph changed meanwhile",
			},
			[]string{"engine"},
		),
		layoutRequestLen: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: layoutSubsystem,
				Name:      "request_elements",
				Help:      "Number of nodes and edges sent to the layout engine",
				Buckets:   prometheus.ExponentialBuckets(8, 4, 8),
			},
			[]string{"kind"}, // kind: "nodes", "edges"
		),
		transitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: graphSubsystem,
				Name:      "transitions_total",
				Help:      "Total number of collapse/expand transitions",
			},
			[]string{"op", "status"},
		),
		transitionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: graphSubsystem,
				Name:      "transition_duration_seconds",
				Help:      "Time taken to lift or ground edges for one transition",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 8),
			},
			[]string{"op"},
		),
		hyperEdges: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: graphSubsystem,
				Name:      "hyperedges",
				Help:      "Hyperedge count after the most recent transition",
			},
		),
		cacheOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: cacheSubsystem,
				Name:      "operations_total",
				Help:      "Cache lookups and writes",
			},
			[]string{"key_type", "result"}, // result: "hit", "miss", "set"
		),
		cacheBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: cacheSubsystem,
				Name:      "written_bytes_total",
				Help:      "Bytes written to the cache",
			},
			[]string{"key_type"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// OnLayoutStart implements observability.LayoutHooks.
func (h *Hooks) OnLayoutStart(_ context.Context, _ string, nodes, edges int) {
	h.layoutRequestLen.WithLabelValues("nodes").Observe(float64(nodes))
	h.layoutRequestLen.WithLabelValues("edges").Observe(float64(edges))
}

// OnLayoutComplete implements observability.LayoutHooks.
func (h *Hooks) OnLayoutComplete(_ context.Context, engine string, d time.Duration, err error) {
	h.layoutsTotal.WithLabelValues(engine, status(err)).Inc()
	h.layoutDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// OnLayoutDiscarded implements observability.LayoutHooks.
func (h *Hooks) OnLayoutDiscarded(_ context.Context, engine string) {
	h.layoutDiscarded.WithLabelValues(engine).Inc()
}

// OnTransition implements observability.GraphHooks.
func (h *Hooks) OnTransition(_ context.Context, op, _ string, d time.Duration, err error) {
	h.transitionsTotal.WithLabelValues(op, status(err)).Inc()
	h.transitionDuration.WithLabelValues(op).Observe(d.Seconds())
}

// OnHyperEdges implements observability.GraphHooks.
func (h *Hooks) OnHyperEdges(_ context.Context, count int) {
	h.hyperEdges.Set(float64(count))
}

// OnCacheHit implements observability.CacheHooks.
func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheOps.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// Register installs h as the global layout, graph and cache hooks.
func (h *Hooks) Register() {
	observability.SetLayoutHooks(h)
	observability.SetGraphHooks(h)
	observability.SetCacheHooks(h)
}

var (
	_ observability.LayoutHooks = (*Hooks)(nil)
	_ observability.GraphHooks  = (*Hooks)(nil)
	_ observability.CacheHooks  = (*Hooks)(nil)
)
