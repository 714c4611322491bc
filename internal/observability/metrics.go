package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard_alert"

// Metrics holds the Prometheus counters, histograms, and gauges for the alert pipeline.
type Metrics struct {
	PingsReceived prometheus.Counter
	PingsRejected prometheus.Counter
	Assessments   *prometheus.CounterVec // labels: level={None,Moderate,High}

	// Dispatch metrics.
	AlertsSuppressed    prometheus.Counter
	AlertsDispatched    *prometheus.CounterVec // labels: sink, outcome={success,error}
	AlertsDropped       prometheus.Counter
	DispatchInFlight    prometheus.Gauge
	SinkRequestDuration *prometheus.HistogramVec // labels: sink

	// Ingestion endpoint metrics.
	HTTPRequests        *prometheus.CounterVec   // labels: method, path, status
	HTTPRequestDuration *prometheus.HistogramVec // labels: method, path

	// Kafka ping stream metrics.
	StreamRunning prometheus.Gauge
	BatchSize     prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PingsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_received_total",
			Help:      "Total pings accepted for assessment.",
		}),
		PingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_rejected_total",
			Help:      "Total payload items skipped as invalid pings.",
		}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Hazard assessments by resulting level.",
		}, []string{"level"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Alerts suppressed by the cooldown window.",
		}),
		AlertsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dispatched_total",
			Help:      "Alert sends by sink and outcome.",
		}, []string{"sink", "outcome"}),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Alerts dropped because the dispatcher was saturated or closed.",
		}),
		DispatchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_in_flight",
			Help:      "Dispatch goroutines currently sending alerts.",
		}),
		SinkRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_request_duration_seconds",
			Help:      "Duration of a single alert send in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"sink"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		StreamRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_running",
			Help:      "1 when the Kafka ping stream is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch read from the ping topic.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PingsReceived,
		m.PingsRejected,
		m.Assessments,
		m.AlertsSuppressed,
		m.AlertsDispatched,
		m.AlertsDropped,
		m.DispatchInFlight,
		m.SinkRequestDuration,
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.StreamRunning,
		m.BatchSize,
	}
}
