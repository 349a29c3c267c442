package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adaptd",
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Total analysis calls",
		},
		[]string{"task", "fallback", "success"},
	)

	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adaptd",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of analysis calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task"},
	)
)

func init() {
	prometheus.MustRegister(analysesTotal, analysisDuration)
}
