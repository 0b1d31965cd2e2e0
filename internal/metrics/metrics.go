// Package metrics exposes editor activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a registry with the arbor metrics.
type Collector struct {
	registry *prometheus.Registry

	edits   *prometheus.CounterVec
	noops   *prometheus.CounterVec
	moves   *prometheus.CounterVec
	history *prometheus.GaugeVec
	layout  prometheus.Histogram
}

// New creates a Collector with its own registry, including Go runtime metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		edits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_edits_total",
				Help: "Total number of applied edits",
			},
			[]string{"op"},
		),
		noops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_noop_edits_total",
				Help: "Total number of edits rejected by a precondition",
			},
			[]string{"op"},
		),
		moves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_history_moves_total",
				Help: "Total number of undo, redo and load operations",
			},
			[]string{"kind"},
		),
		history: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arbor_history_depth",
				Help: "Number of snapshots retained in the undo history",
			},
			[]string{"workflow"},
		),
		layout: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arbor_layout_duration_seconds",
				Help:    "Duration of layout recomputations",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
	}
	c.registry.MustRegister(
		c.edits, c.noops, c.moves, c.history, c.layout,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Hooks returns editor hooks that record the activity of one workflow.
func (c *Collector) Hooks(workflowID string) domain.EditHooks {
	depth := c.history.WithLabelValues(workflowID)
	track := func(kind string) func(context.Context, *domain.EditEvent) {
		return func(_ context.Context, e *domain.EditEvent) {
			c.moves.WithLabelValues(kind).Inc()
			depth.Set(float64(e.HistoryLen))
		}
	}
	return domain.EditHooks{
		OnApply: func(_ context.Context, e *domain.EditEvent) {
			c.edits.WithLabelValues(e.Op).Inc()
			depth.Set(float64(e.HistoryLen))
		},
		OnNoop: func(_ context.Context, e *domain.EditEvent) {
			c.noops.WithLabelValues(e.Op).Inc()
		},
		OnUndo: track("undo"),
		OnRedo: track("redo"),
		OnLoad: track("load"),
	}
}

// ObserveLayout records a layout recomputation.
func (c *Collector) ObserveLayout(d time.Duration) {
	c.layout.Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
