// Package metrics registers Prometheus metrics for the store components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Name constants for metrics labels.
const (
	labelSagaType  = "saga_type"
	labelPath      = "path"
	labelEventType = "event_type"
	labelOp        = "op"
)

var (
	// Total number of optimistic locking conflicts raised by the saga store.
	ConflictCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mongostore_saga_conflict_count_total",
		Help: "Total number of optimistic locking conflicts raised by the saga store",
	}, []string{labelSagaType})

	// Total number of unique correlation indexes created by the background pass.
	IndexCreatedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mongostore_saga_index_created_count_total",
		Help: "Total number of unique correlation indexes created by the background maintenance pass",
	}, []string{labelSagaType, labelPath})

	// Background index maintenance pass execution time in seconds.
	IndexCheckHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mongostore_saga_index_check_duration_seconds",
		Help:    "Execution time of the background unique-index maintenance pass in seconds",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	}, []string{labelSagaType})

	// Total number of timeouts leased by GetDueTimeouts.
	TimeoutLeasedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mongostore_timeout_leased_count_total",
		Help: "Total number of timeouts leased by GetDueTimeouts",
	})

	// Total number of timeouts marked as processed.
	TimeoutProcessedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mongostore_timeout_processed_count_total",
		Help: "Total number of timeouts marked as processed",
	})

	// Total number of add/remove writes performed against the subscription store.
	SubscriptionWriteCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mongostore_subscription_write_count_total",
		Help: "Total number of add/remove writes performed against the subscription store",
	}, []string{labelEventType, labelOp})
)
