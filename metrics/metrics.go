package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the delivery engine.
type Metrics struct {
	// QueueReady is the number of deliveries waiting for a worker
	QueueReady int64 `json:"queue_ready"`

	// QueueScheduled is the number of deliveries parked for a future retry
	QueueScheduled int64 `json:"queue_scheduled"`

	// StatusCounts maps delivery status name to count across all webhooks
	StatusCounts map[string]int64 `json:"status_counts"`

	// Workers lists delivery workers with a live heartbeat
	Workers []WorkerInfo `json:"workers"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// WorkerInfo represents information about an active delivery worker.
type WorkerInfo struct {
	// WorkerID is a unique identifier for the worker
	WorkerID string `json:"worker_id"`

	// Status is the current status of the worker (e.g., "idle", "processing")
	Status string `json:"status"`

	// LastHeartbeat is the timestamp of the last heartbeat
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Collector defines the interface for collecting metrics from the engine.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetQueueDepth returns ready and scheduled delivery counts
	GetQueueDepth(ctx context.Context) (ready, scheduled int64, err error)

	// GetStatusCounts returns the count of deliveries by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetActiveWorkers returns the workers with a live heartbeat
	GetActiveWorkers(ctx context.Context) ([]WorkerInfo, error)
}
