package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics provides observability for the intake flow.
type Metrics struct {
	// Submission outcomes: accepted, rejected (input errors), failed (server errors)
	Submissions *prometheus.CounterVec

	// End-to-end submission handling latency
	SubmitLatency prometheus.Histogram

	// Upload bytes accepted into encrypted storage
	StoredBytes prometheus.Counter
}

// New creates a Metrics instance with all intake metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loanform_submissions_total",
			Help: "Total form submissions by outcome",
		}, []string{"outcome"}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanform_submit_duration_seconds",
			Help:    "Duration of full submission handling including storage and persistence",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		StoredBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanform_stored_bytes_total",
			Help: "Total upload bytes accepted into encrypted storage",
		}),
	}
}

// ObserveSubmission records one submission outcome with its duration.
func (m *Metrics) ObserveSubmission(outcome string, d time.Duration) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
		m.SubmitLatency.Observe(d.Seconds())
	}
}

// AddStoredBytes records encrypted bytes written to disk.
func (m *Metrics) AddStoredBytes(n int) {
	if m != nil {
		m.StoredBytes.Add(float64(n))
	}
}
