package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gymstack/webhook-engine/webhook"
)

/* In-process implementation of webhook.Queue backed by a channel plus a
 * scheduled list. Dev and test use only: no durability, single process.
 */
type Queue struct {
	mu        sync.Mutex
	ready     chan string
	scheduled []scheduledEntry
	closed    bool
}

type scheduledEntry struct {
	deliveryID string
	at         time.Time
}

// NewQueue creates an in-process queue with the given buffer size.
func NewQueue(buffer int) *Queue {
	if buffer < 1 {
		buffer = 1024
	}
	return &Queue{
		ready: make(chan string, buffer),
	}
}

func (q *Queue) Enqueue(ctx context.Context, deliveryID string) error {
	select {
	case q.ready <- deliveryID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Schedule(_ context.Context, deliveryID string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.scheduled = append(q.scheduled, scheduledEntry{deliveryID: deliveryID, at: at})
	sort.Slice(q.scheduled, func(i, j int) bool { return q.scheduled[i].at.Before(q.scheduled[j].at) })
	return nil
}

func (q *Queue) Consume(ctx context.Context) ([]webhook.QueueMessage, error) {
	select {
	case id, ok := <-q.ready:
		if !ok {
			return nil, context.Canceled
		}
		return []webhook.QueueMessage{{MessageID: id, DeliveryID: id}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) Ack(_ context.Context, _ webhook.QueueMessage) error {
	return nil
}

func (q *Queue) MoveDue(ctx context.Context, now time.Time) (int, error) {
	q.mu.Lock()
	var due []string
	remaining := q.scheduled[:0]
	for _, e := range q.scheduled {
		if !e.at.After(now) {
			due = append(due, e.deliveryID)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.scheduled = remaining
	q.mu.Unlock()

	for i, id := range due {
		if err := q.Enqueue(ctx, id); err != nil {
			return i, err
		}
	}
	return len(due), nil
}

// Depth reports ready and scheduled entry counts, used by the metrics
// collector.
func (q *Queue) Depth(_ context.Context) (ready, scheduled int64, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ready)), int64(len(q.scheduled)), nil
}

func (q *Queue) Close(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ready)
	}
	return nil
}
