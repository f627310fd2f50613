package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/gymstack/webhook-engine/webhook/redis"
)

/* Small provider interfaces so the collector works against any storage
 * driver; the redis Queue and every webhook.Repository satisfy them.
 */

// StatusCounter provides delivery counts by status
type StatusCounter interface {
	CountAllByStatus(ctx context.Context) (map[string]int64, error)
}

// QueueDepther provides ready/scheduled queue depths
type QueueDepther interface {
	Depth(ctx context.Context) (ready, scheduled int64, err error)
}

// WorkerLister provides the live worker heartbeats
type WorkerLister interface {
	ActiveWorkers(ctx context.Context) ([]redis.WorkerHeartbeat, error)
}

// EngineCollector implements Collector over the delivery store and queue.
// Queue and Workers may be nil when the deployment has no redis (dev mode);
// the corresponding metrics read as zero.
type EngineCollector struct {
	store   StatusCounter
	queue   QueueDepther
	workers WorkerLister
}

// NewEngineCollector creates a collector over the given providers
func NewEngineCollector(store StatusCounter, queue QueueDepther, workers WorkerLister) *EngineCollector {
	return &EngineCollector{
		store:   store,
		queue:   queue,
		workers: workers,
	}
}

// Collect gathers all metrics
func (c *EngineCollector) Collect(ctx context.Context) (Metrics, error) {
	ready, scheduled, err := c.GetQueueDepth(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting queue depth: %w", err)
	}

	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	workers, err := c.GetActiveWorkers(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting active workers: %w", err)
	}

	return Metrics{
		QueueReady:     ready,
		QueueScheduled: scheduled,
		StatusCounts:   statusCounts,
		Workers:        workers,
		Timestamp:      time.Now(),
	}, nil
}

// GetQueueDepth returns ready and scheduled delivery counts
func (c *EngineCollector) GetQueueDepth(ctx context.Context) (int64, int64, error) {
	if c.queue == nil {
		return 0, 0, nil
	}
	return c.queue.Depth(ctx)
}

// GetStatusCounts returns delivery counts by status
func (c *EngineCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	return c.store.CountAllByStatus(ctx)
}

// GetActiveWorkers returns the workers with a live heartbeat
func (c *EngineCollector) GetActiveWorkers(ctx context.Context) ([]WorkerInfo, error) {
	if c.workers == nil {
		return nil, nil
	}

	beats, err := c.workers.ActiveWorkers(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]WorkerInfo, 0, len(beats))
	for _, b := range beats {
		infos = append(infos, WorkerInfo{
			WorkerID:      b.WorkerID,
			Status:        b.Status,
			LastHeartbeat: b.LastHeartbeat,
		})
	}
	return infos, nil
}
