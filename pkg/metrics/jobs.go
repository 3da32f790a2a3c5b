package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	jobStatusOK     = "ok"
	jobStatusFailed = "failed"
)

// JobMetrics records run outcomes for the background maintenance jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewJobMetrics registers the maintenance job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Wall-clock duration of maintenance job runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job runs, by job and outcome.",
	}, []string{"job", "status"})
	reg.MustRegister(duration, runs)
	return &JobMetrics{duration: duration, runs: runs}
}

// ObserveRun records one completed run of the named job.
func (m *JobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	if job == "" {
		job = "unknown"
	}
	status := jobStatusOK
	if err != nil {
		status = jobStatusFailed
	}
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
	m.runs.WithLabelValues(job, status).Inc()
}
