// Package metrics defines the Prometheus collectors exported by vigil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "vigil"

	outcomeLabel = "outcome"
	stageLabel   = "stage"
	methodLabel  = "method"
	routeLabel   = "route"
	statusLabel  = "status"
)

// Message outcomes recorded by the queue consumer.
const (
	OutcomeCompleted    = "completed"
	OutcomeFailed       = "failed"
	OutcomeMalformed    = "malformed"
	OutcomeDeadLettered = "dead_lettered"
)

var messagesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_messages_total",
		Help:      "number of queue messages handled, by outcome",
	},
	[]string{outcomeLabel},
)

var inflightMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pipeline_inflight",
		Help:      "number of call analyses currently executing",
	},
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "duration of each pipeline stage",
		Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
	},
	[]string{stageLabel, outcomeLabel},
)

var observabilityMinutesMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observability_minutes_total",
		Help:      "observability minutes accrued against organizations",
	},
)

var alertsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_dispatched_total",
		Help:      "number of alert notifications dispatched, by alert type",
	},
	[]string{"type"},
)

var requestDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{methodLabel, routeLabel, statusLabel},
)

func init() {
	prometheus.MustRegister(
		messagesTotalMetric,
		inflightMetric,
		stageDurationMetric,
		observabilityMinutesMetric,
		alertsTotalMetric,
		requestDurationMetric,
	)
}

func IncreaseMessagesTotal(outcome string) {
	messagesTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseInflight() {
	inflightMetric.Inc()
}

func DecreaseInflight() {
	inflightMetric.Dec()
}

// ObserveStage records how long a pipeline stage ran and whether it failed.
func ObserveStage(stage string, start time.Time, err error) {
	outcome := OutcomeCompleted
	if err != nil {
		outcome = OutcomeFailed
	}
	stageDurationMetric.With(prometheus.Labels{
		stageLabel:   stage,
		outcomeLabel: outcome,
	}).Observe(time.Since(start).Seconds())
}

func AddObservabilityMinutes(minutes int) {
	observabilityMinutesMetric.Add(float64(minutes))
}

func IncreaseAlertsTotal(alertType string) {
	alertsTotalMetric.With(prometheus.Labels{"type": alertType}).Inc()
}

func ObserveRequest(method, route, status string, d time.Duration) {
	requestDurationMetric.With(prometheus.Labels{
		methodLabel: method,
		routeLabel:  route,
		statusLabel: status,
	}).Observe(d.Seconds())
}
