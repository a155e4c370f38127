// Package metrics holds the Prometheus collectors of one kernel.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for notebook_invocations_total.
const (
	OutcomeOK         = "ok"
	OutcomeFailed     = "failed"
	OutcomeCancelled  = "cancelled"
	OutcomeNotFound   = "not_found"
	OutcomeLoadFailed = "load_failed"
)

// Collector groups the kernel's collectors. A nil *Collector is a valid no-op.
type Collector struct {
	invocations   *prometheus.CounterVec
	duration      prometheus.Histogram
	attributes    *prometheus.CounterVec
	liveWorkers   prometheus.Gauge
	cancellations prometheus.Counter
	releases      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// Collectors are per kernel, so tests pass their own prometheus.NewRegistry().
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_invocations_total",
			Help: "Operation invocations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notebook_invocation_duration_seconds",
			Help:    "Wall time of blocking invocations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		attributes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_migrated_attributes_total",
			Help: "Attributes handled by state migration, by mode (copied, migrated, skipped).",
		}, []string{"mode"}),
		liveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notebook_live_workers",
			Help: "Workers currently registered in the live-worker set.",
		}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notebook_cancellations_total",
			Help: "Worker interrupts sent.",
		}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notebook_releases_total",
			Help: "Resources released during teardown, by result.",
		}, []string{"result"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{
		c.invocations, c.duration, c.attributes, c.liveWorkers, c.cancellations, c.releases,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Invocation records one invocation outcome. Zero durations are not observed.
func (c *Collector) Invocation(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.invocations.WithLabelValues(outcome).Inc()
	if d > 0 {
		c.duration.Observe(d.Seconds())
	}
}

// Migration records the attribute counts of one migration.
func (c *Collector) Migration(copied, migrated, skipped int) {
	if c == nil {
		return
	}
	c.attributes.WithLabelValues("copied").Add(float64(copied))
	c.attributes.WithLabelValues("migrated").Add(float64(migrated))
	c.attributes.WithLabelValues("skipped").Add(float64(skipped))
}

// LiveWorkers sets the live-worker gauge.
func (c *Collector) LiveWorkers(n int) {
	if c == nil {
		return
	}
	c.liveWorkers.Set(float64(n))
}

// Cancelled counts interrupts sent.
func (c *Collector) Cancelled(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.cancellations.Add(float64(n))
}

// Released records one teardown release.
func (c *Collector) Released(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.releases.WithLabelValues("failed").Inc()
		return
	}
	c.releases.WithLabelValues("ok").Inc()
}
