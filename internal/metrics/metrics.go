package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels batches triaged end to end.
	OutcomeSuccess = "success"
	// OutcomeError labels batches that failed (unreadable bundle or cancelled run).
	OutcomeError = "error"
)

var (
	candidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "candidates_total",
			Help:      "Bug candidates detected, partitioned by candidate type.",
		},
		[]string{"type"},
	)

	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "classifications_total",
			Help:      "Classified candidates, partitioned by priority.",
		},
		[]string{"priority"},
	)

	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "batches_total",
			Help:      "Triage batches handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	batchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_triage",
			Name:      "batch_seconds",
			Help:      "Triage batch latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

// Register attaches mirador-triage collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		candidatesTotal,
		classificationsTotal,
		batchesTotal,
		batchDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCandidate counts one detected candidate.
func ObserveCandidate(candidateType string) {
	candidatesTotal.WithLabelValues(candidateType).Inc()
}

// ObserveClassification counts one classification by priority.
func ObserveClassification(priority string) {
	classificationsTotal.WithLabelValues(priority).Inc()
}

// ObserveBatch records a batch duration and outcome label.
func ObserveBatch(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	batchesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	batchDurationSeconds.Observe(duration.Seconds())
}
