// Package jobmetrics instruments background ledger jobs.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run statuses recorded on ledger_jobs_total.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics holds the job collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	drift       prometheus.Gauge
	now         func() time.Time
}

// NewMetrics registers the job collectors on registerer. A nil registerer
// leaves them unregistered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_jobs_total",
			Help: "Background job runs by job and status.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_job_duration_seconds",
			Help:    "Background job run time.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_reconcile_drift_accounts",
			Help: "Accounts whose balance disagreed with the journal at the last integrity check.",
		}),
		now: time.Now,
	}
	if registerer != nil {
		registerer.MustRegister(m.runs, m.duration, m.lastSuccess, m.drift)
	}
	return m
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{metrics: m, job: job}
	if m != nil {
		t.start = m.now()
	}
	return t
}

// End records the run outcome and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	now := m.now()
	m.duration.WithLabelValues(t.job).Observe(now.Sub(t.start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(t.job, StatusFailed).Inc()
		return err
	}
	m.runs.WithLabelValues(t.job, StatusSucceeded).Inc()
	m.lastSuccess.WithLabelValues(t.job).Set(float64(now.Unix()))
	return nil
}

// SetDrift records how many accounts the last integrity check found drifting.
func (m *Metrics) SetDrift(accounts int) {
	if m == nil {
		return
	}
	m.drift.Set(float64(accounts))
}
