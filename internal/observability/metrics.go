// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Inference metrics
	PredictionsTotal  *prometheus.CounterVec
	PredictionErrors  *prometheus.CounterVec
	PredictionLatency *prometheus.HistogramVec

	// Simulator metrics
	SamplesReplayed *prometheus.CounterVec
	SamplesAppended prometheus.Counter

	// Monitor metrics
	LogPolls        *prometheus.CounterVec
	LogRows         prometheus.Gauge
	AlertState      prometheus.Gauge
	AlertsLatched   *prometheus.CounterVec
	IncidentsClosed *prometheus.CounterVec
	Mitigations     *prometheus.CounterVec
	ViewSubscribers prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pipeline_guard"
	}

	return &Metrics{
		PredictionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "predictions_total",
			Help:      "Total number of predictions by severity class",
		}, []string{"class"}),
		PredictionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "errors_total",
			Help:      "Total number of failed classifications by error kind",
		}, []string{"kind"}),
		PredictionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "latency_seconds",
			Help:      "Classification latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"client"}),

		SamplesReplayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "samples_total",
			Help:      "Total number of replayed samples by outcome",
		}, []string{"outcome"}),
		SamplesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "samples_appended_total",
			Help:      "Total number of classified samples appended to the log",
		}),

		LogPolls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "polls_total",
			Help:      "Total number of log polls by resulting view",
		}, []string{"view"}),
		LogRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "log_rows",
			Help:      "Number of rows in the sample log at the last poll",
		}),
		AlertState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "latched",
			Help:      "1 while an alert is latched, 0 while monitoring",
		}),
		AlertsLatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "latched_total",
			Help:      "Total number of alerts latched by severity class",
		}, []string{"class"}),
		IncidentsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "incidents_closed_total",
			Help:      "Total number of incidents closed by outcome",
		}, []string{"outcome"}),
		Mitigations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "mitigations_total",
			Help:      "Total number of mitigation actions dispatched",
		}, []string{"action"}),
		ViewSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "subscribers",
			Help:      "Current number of WebSocket view subscribers",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPrediction records a successful classification.
func RecordPrediction(client string, class int, seconds float64) {
	DefaultMetrics.PredictionsTotal.WithLabelValues(strconv.Itoa(class)).Inc()
	DefaultMetrics.PredictionLatency.WithLabelValues(client).Observe(seconds)
}

// RecordPredictionError records a failed classification.
func RecordPredictionError(kind string) {
	DefaultMetrics.PredictionErrors.WithLabelValues(kind).Inc()
}

// RecordReplay records one replayed sample outcome (sent, skipped, aborted).
func RecordReplay(outcome string) {
	DefaultMetrics.SamplesReplayed.WithLabelValues(outcome).Inc()
}

// RecordAppend increments the appended samples counter.
func RecordAppend() {
	DefaultMetrics.SamplesAppended.Inc()
}

// RecordPoll records a monitor poll and the log size it saw.
func RecordPoll(view string, rows int) {
	DefaultMetrics.LogPolls.WithLabelValues(view).Inc()
	DefaultMetrics.LogRows.Set(float64(rows))
}

// RecordAlertLatched records a transition into the latched state.
func RecordAlertLatched(class int) {
	DefaultMetrics.AlertState.Set(1)
	DefaultMetrics.AlertsLatched.WithLabelValues(strconv.Itoa(class)).Inc()
}

// RecordIncidentClosed records a transition back to monitoring.
func RecordIncidentClosed(outcome string) {
	DefaultMetrics.AlertState.Set(0)
	DefaultMetrics.IncidentsClosed.WithLabelValues(outcome).Inc()
}

// RecordMitigation records a dispatched mitigation action.
func RecordMitigation(action string) {
	DefaultMetrics.Mitigations.WithLabelValues(action).Inc()
}

// SetSubscribers updates the WebSocket subscriber gauge.
func SetSubscribers(n int) {
	DefaultMetrics.ViewSubscribers.Set(float64(n))
}

// RecordHTTP records one served HTTP request.
func RecordHTTP(method, route string, status int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}
