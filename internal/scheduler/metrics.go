package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cycleResultOK    = "ok"
	cycleResultError = "error"

	attemptPublished = "published"
	attemptFailed    = "failed"
	attemptSkipped   = "skipped"
)

// Metrics — Prometheus-метрики планировщика.
type Metrics struct {
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	publishAttempts *prometheus.CounterVec
	duePosts        prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// reg == nil — метрики не регистрируются (тесты, встраивание).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "herald_scheduler_cycles_total",
			Help: "Scan cycles by result",
		}, []string{"result"}),

		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "herald_scheduler_cycle_duration_seconds",
			Help:    "Duration of one scan cycle",
			Buckets: prometheus.DefBuckets,
		}),

		publishAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "herald_scheduler_publish_attempts_total",
			Help: "Publish attempts by result",
		}, []string{"result"}),

		duePosts: f.NewGauge(prometheus.GaugeOpts{
			Name: "herald_scheduler_due_posts",
			Help: "Due posts found by the last scan cycle",
		}),
	}
}

func (m *Metrics) observeCycle(result string, d time.Duration) {
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
}
