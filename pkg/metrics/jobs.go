package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records maintenance job runs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	purged   *prometheus.CounterVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job runs by result.",
	}, []string{"job", "result"})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_rows_purged_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, purged)
	return &JobMetrics{duration: duration, runs: runs, purged: purged}
}

// ObserveRun records one run; failed selects the result label.
func (m *JobMetrics) ObserveRun(job string, duration time.Duration, failed bool) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
	result := "ok"
	if failed {
		result = "error"
	}
	m.runs.WithLabelValues(job, result).Inc()
}

func (m *JobMetrics) AddPurged(job string, rows int64) {
	if m == nil || m.purged == nil || rows <= 0 {
		return
	}
	m.purged.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}
