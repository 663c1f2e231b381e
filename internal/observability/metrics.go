package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for ingestion and analysis.
type Metrics struct {
	IngestRuns       *prometheus.CounterVec // labels: trigger
	PointsInserted   prometheus.Counter
	LocationFailures prometheus.Counter
	IngestDuration   prometheus.Histogram

	WebhookMessages *prometheus.CounterVec // labels: outcome={success,error}
	KafkaMessages   *prometheus.CounterVec // labels: outcome={processed,malformed,error}
	Analyses        *prometheus.CounterVec // labels: kind={analyze,enrich}

	StreamSubscribers prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestRuns,
		m.PointsInserted,
		m.LocationFailures,
		m.IngestDuration,
		m.WebhookMessages,
		m.KafkaMessages,
		m.Analyses,
		m.StreamSubscribers,
	)
	return m
}

// NewMetricsForTesting returns unregistered metrics so tests can build as many
// as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_risk",
			Name:      "ingest_runs_total",
			Help:      "Satellite ingestion runs by trigger.",
		}, []string{"trigger"}),
		PointsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_risk",
			Name:      "satellite_points_inserted_total",
			Help:      "Satellite data points written to storage.",
		}),
		LocationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_risk",
			Name:      "ingest_location_failures_total",
			Help:      "Locations whose bulk insert failed.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_risk",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete ingestion run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WebhookMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_risk",
			Name:      "webhook_messages_total",
			Help:      "Pub/Sub push messages by outcome.",
		}, []string{"outcome"}),
		KafkaMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_risk",
			Name:      "kafka_messages_total",
			Help:      "Satellite events read from Kafka by outcome.",
		}, []string{"outcome"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_risk",
			Name:      "analyses_total",
			Help:      "Risk analyses and grid enrichments served.",
		}, []string{"kind"}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_risk",
			Name:      "stream_subscribers",
			Help:      "Connected live feed subscribers.",
		}),
	}
}
