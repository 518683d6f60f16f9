package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrosched_compile_total",
		Help: "Schedule compiles by result",
	}, []string{"result"}) // result=success|failure

	compileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "astrosched_compile_duration_seconds",
		Help:    "Time spent compiling all schedules",
		Buckets: prometheus.DefBuckets,
	})

	dayEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "astrosched_day_events",
		Help: "Day events per schedule in the last successful compile",
	}, []string{"schedule"})
)

func recordCompile(err error, seconds float64) {
	if err != nil {
		compileTotal.WithLabelValues("failure").Inc()
		return
	}
	compileTotal.WithLabelValues("success").Inc()
	compileDuration.Observe(seconds)
}
