package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercato_chat_requests_total",
			Help: "Total number of chat pipeline requests by terminal outcome.",
		},
		[]string{"outcome"},
	)
	chatRequestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mercato_chat_request_duration_seconds",
			Help:    "End-to-end chat pipeline latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mercato_model_call_duration_seconds",
			Help:    "Model backend call latency by pipeline step.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"step"},
	)
	sqlRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercato_sql_rejected_total",
			Help: "Total number of model-proposed queries vetoed by the safety validator, by rule.",
		},
		[]string{"rule"},
	)
	chatQueryRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mercato_chat_query_rows",
			Help:    "Row counts returned by validated chat queries.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
	)
	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercato_transfers_total",
			Help: "Total number of transfer attempts by result.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		chatRequestsTotal,
		chatRequestDurationSeconds,
		modelCallDurationSeconds,
		sqlRejectedTotal,
		chatQueryRows,
		transfersTotal,
	)
}

func ObserveChatRequest(outcome string, elapsed time.Duration) {
	chatRequestsTotal.WithLabelValues(outcome).Inc()
	chatRequestDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveModelCall(step string, elapsed time.Duration) {
	modelCallDurationSeconds.WithLabelValues(step).Observe(elapsed.Seconds())
}

func IncrementSQLRejected(rule string) {
	sqlRejectedTotal.WithLabelValues(rule).Inc()
}

func ObserveChatQueryRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	chatQueryRows.Observe(float64(rows))
}

func IncrementTransfer(status string) {
	transfersTotal.WithLabelValues(status).Inc()
}
