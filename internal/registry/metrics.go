package registry

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptd",
		Subsystem: "models",
		Name:      "loads_total",
		Help:      "Total model loads",
	})

	loadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptd",
		Subsystem: "models",
		Name:      "load_failures_total",
		Help:      "Total failed model loads",
	})

	evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptd",
		Subsystem: "models",
		Name:      "evictions_total",
		Help:      "Total model evictions",
	})

	residentGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adaptd",
		Subsystem: "models",
		Name:      "resident_memory_mb",
		Help:      "Summed measured footprint of resident models in MB",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFailuresTotal, evictionsTotal, residentGauge)
}
