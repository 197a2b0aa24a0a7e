package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rickgao/feedwarden/internal/engine"
)

const namespace = "feedwarden"

// Collector turns engine events into Prometheus metrics.
type Collector struct {
	ticks           *prometheus.CounterVec
	tickDuration    prometheus.Histogram
	itemsAnnounced  prometheus.Counter
	deliveries      *prometheus.CounterVec
	retractions     *prometheus.CounterVec
	deletesFailed   prometheus.Counter
	persistFailures prometheus.Counter
	lastTick        prometheus.Gauge
}

// New registers the collector's metrics with reg.
// Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks by result (ok, feed_unavailable, skipped).",
		}, []string{"result"}),

		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of completed ticks.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		itemsAnnounced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_announced_total",
			Help:      "Items fanned out to destinations.",
		}),

		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-destination sends by result (ok, failed).",
		}, []string{"result"}),

		retractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retractions_total",
			Help:      "Retraction requests by terminal state.",
		}, []string{"state"}),

		deletesFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_failed_total",
			Help:      "Message deletions that failed during retraction cleanup.",
		}),

		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Record saves that failed and will be retried.",
		}),

		lastTick: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_tick_timestamp_seconds",
			Help:      "Unix time of the last completed tick.",
		}),
	}
}

// Observe implements engine.Observer.
func (c *Collector) Observe(e engine.Event) {
	switch e.Kind {
	case engine.EventTickCompleted:
		if e.Error != "" {
			c.ticks.WithLabelValues("feed_unavailable").Inc()
		} else {
			c.ticks.WithLabelValues("ok").Inc()
		}
		c.tickDuration.Observe(e.Duration.Seconds())
		c.lastTick.Set(float64(e.Time.Unix()))
	case engine.EventTickSkipped:
		c.ticks.WithLabelValues("skipped").Inc()
	case engine.EventAnnounced:
		c.itemsAnnounced.Inc()
	case engine.EventDelivered:
		c.deliveries.WithLabelValues("ok").Inc()
	case engine.EventDeliveryFailed:
		c.deliveries.WithLabelValues("failed").Inc()
	case engine.EventRetracted:
		c.retractions.WithLabelValues(engine.StateAcknowledged.String()).Inc()
	case engine.EventRetractionRejected:
		c.retractions.WithLabelValues(engine.StateRejected.String()).Inc()
	case engine.EventRetractionFailed:
		c.retractions.WithLabelValues(engine.StateFailed.String()).Inc()
	case engine.EventDeleteFailed:
		c.deletesFailed.Inc()
	case engine.EventPersistFailed:
		c.persistFailures.Inc()
	}
}
