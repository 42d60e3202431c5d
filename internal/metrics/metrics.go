// Package metrics exposes the core's operational counters via the real
// prometheus client library, registered once and served by promhttp.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "geopulse"

// Registry bundles every metric the core stream processor emits.
type Registry struct {
	EventsProcessed   prometheus.Counter
	EventsMalformed   prometheus.Counter
	StateTransitions  *prometheus.CounterVec
	AlertsPublished   prometheus.Counter
	AlertPublishFails prometheus.Counter
	PublishLatencyMs  prometheus.Histogram
	MaterializedFails prometheus.Counter
	ConsumerLag       *prometheus.GaugeVec
}

var (
	once     sync.Once
	registry *Registry
)

// New registers the metric set against reg. Call once per process;
// subsequent calls return the same Registry (mirrors the sync.Once
// registration guard used for the microgrid-cloud metrics package).
func New(reg prometheus.Registerer) *Registry {
	once.Do(func() {
		factory := promauto.With(reg)
		registry = &Registry{
			EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_processed_total",
				Help:      "Number of valid sample events processed.",
			}),
			EventsMalformed: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_malformed_total",
				Help:      "Number of events dropped for failing schema or range validation.",
			}),
			StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Zone state transitions, labeled by from/to state.",
			}, []string{"from", "to"}),
			AlertsPublished: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_published_total",
				Help:      "Alerts successfully written to the egress topic.",
			}),
			AlertPublishFails: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alert_publish_failures_total",
				Help:      "Alert publish attempts that failed and were logged-and-dropped.",
			}),
			PublishLatencyMs: factory.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "alert_publish_latency_ms",
				Help:      "Latency of alert egress writes in milliseconds.",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
			}),
			MaterializedFails: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "materialized_write_failures_total",
				Help:      "Best-effort materialized-state writes that failed.",
			}),
			ConsumerLag: factory.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "zone_worker_inflight",
				Help:      "In-flight events per worker partition; no code path sets it, so it exports no series.",
			}, []string{"worker"}),
		}
	})
	return registry
}
