// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the pipeline's Prometheus metrics.
type Collector struct {
	queriesTotal   *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	drafts         prometheus.Counter
	regenerations  prometheus.Counter
	suppressions   prometheus.Counter
	degradedStages *prometheus.CounterVec
	indexedChunks  prometheus.Gauge
}

// NewCollector registers the pipeline metrics on a registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered queries by final outcome.",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Per-stage latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"stage"}),
		drafts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_total",
			Help:      "Generator drafts produced, including regenerations.",
		}),
		regenerations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regenerations_total",
			Help:      "Drafts rejected by validation and regenerated.",
		}),
		suppressions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressions_total",
			Help:      "Queries whose final draft was suppressed.",
		}),
		degradedStages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_stages_total",
			Help:      "Stage failures contained by degrading the pipeline.",
		}, []string{"stage"}),
		indexedChunks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_chunks",
			Help:      "Chunks in the current index snapshot.",
		}),
	}
}

func (c *Collector) ObserveQuery(outcome string) { c.queriesTotal.WithLabelValues(outcome).Inc() }

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) ObserveDraft()                { c.drafts.Inc() }
func (c *Collector) ObserveRegeneration()         { c.regenerations.Inc() }
func (c *Collector) ObserveSuppression()          { c.suppressions.Inc() }
func (c *Collector) ObserveDegraded(stage string) { c.degradedStages.WithLabelValues(stage).Inc() }
func (c *Collector) SetIndexedChunks(n int)       { c.indexedChunks.Set(float64(n)) }
