package metrics

import "github.com/prometheus/client_golang/prometheus"

// Answer pipeline Prometheus metrics.
var (
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdex",
			Name:      "answers_total",
			Help:      "Total answers served, by refinement outcome",
		},
		[]string{"language", "refined"}, // refined: "true" / "false"
	)

	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdex",
			Name:      "retrievals_total",
			Help:      "Total retrieval requests by mode",
		},
		[]string{"mode", "status"},
	)

	RefineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "askdex",
			Name:      "refine_request_duration_seconds",
			Help:      "Answer refinement request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)
)

var answerMetricsRegistered bool

// RegisterAnswerMetrics registers answer pipeline metrics. Must be called once from main.
func RegisterAnswerMetrics() {
	if answerMetricsRegistered {
		return
	}
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(RetrievalsTotal)
	prometheus.MustRegister(RefineRequestDuration)
	answerMetricsRegistered = true
}
