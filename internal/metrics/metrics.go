package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationsTotal counts relationship mutations by operation and result kind.
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairgraph_relationship_mutations_total",
		Help: "Total relationship mutations by operation and result",
	}, []string{"operation", "result"})

	// mutationRetries counts read-validate-write cycles restarted after a lock conflict.
	mutationRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairgraph_relationship_mutation_retries_total",
		Help: "Total relationship mutation retries caused by concurrent modification",
	}, []string{"operation"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pairgraph_relationship_mutation_duration_seconds",
		Help:    "Relationship mutation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"operation"})
)

// ObserveMutation records the outcome of one relationship mutation.
func ObserveMutation(operation, result string, started time.Time) {
	mutationsTotal.WithLabelValues(operation, result).Inc()
	mutationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func ObserveRetry(operation string) {
	mutationRetries.WithLabelValues(operation).Inc()
}
