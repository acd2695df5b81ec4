package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts document store operations by driver and operation.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_store_operations_total",
		Help: "Total number of document store operations",
	}, []string{"driver", "operation"})

	// StoreOperationLatency records store operation latency by driver and operation.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ripple_store_operation_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver", "operation"})

	// TransactionConflicts counts transactions aborted due to contention.
	TransactionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_store_transaction_conflicts_total",
		Help: "Total number of transactions aborted due to contention",
	})

	// CascadeShards counts cascade deletion shards by outcome.
	CascadeShards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_cascade_shards_total",
		Help: "Total number of cascade deletion shards by outcome",
	}, []string{"outcome"})

	// ProfileFanoutDocs counts documents rewritten during profile propagation.
	ProfileFanoutDocs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_profile_fanout_documents_total",
		Help: "Total number of denormalized documents rewritten during profile propagation",
	})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// EngagementEventsTotal counts published engagement events by type.
	EngagementEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_engagement_events_total",
		Help: "Total engagement events published by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// StoreMetrics records per-operation metrics for a store driver.
type StoreMetrics struct {
	driver string
}

// NewStoreMetrics returns a StoreMetrics instance for the given driver name.
func NewStoreMetrics(driver string) *StoreMetrics {
	return &StoreMetrics{driver: driver}
}

// ObserveOperation records one completed operation and its latency.
func (m *StoreMetrics) ObserveOperation(operation string, start time.Time) {
	StoreOperations.WithLabelValues(m.driver, operation).Inc()
	StoreOperationLatency.WithLabelValues(m.driver, operation).Observe(time.Since(start).Seconds())
}

// TrackOperation returns a function that records the operation when called (e.g. defer).
func (m *StoreMetrics) TrackOperation(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveOperation(operation, start)
	}
}

// RecordConflict increments the transaction conflict counter.
func (m *StoreMetrics) RecordConflict() {
	TransactionConflicts.Inc()
}

// RecordCascadeShard records the outcome ("ok" or "failed") of one cascade shard.
func RecordCascadeShard(outcome string) {
	CascadeShards.WithLabelValues(outcome).Inc()
}

// RecordEngagementEvent increments the engagement events counter for the event type.
func RecordEngagementEvent(eventType string) {
	EngagementEventsTotal.WithLabelValues(eventType).Inc()
}
