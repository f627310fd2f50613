package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkerHeartbeat represents the heartbeat data for a delivery worker
type WorkerHeartbeat struct {
	WorkerID      string    `json:"worker_id"`
	Status        string    `json:"status"` // "idle", "processing"
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Beat stores or updates a worker's heartbeat. The key has a TTL of 60
// seconds; a worker that stops beating drops off the ops dashboard.
// Implements webhook.Heartbeater.
func (q *Queue) Beat(ctx context.Context, workerID, status string) error {
	key := fmt.Sprintf("worker:heartbeat:%s", workerID)

	heartbeat := WorkerHeartbeat{
		WorkerID:      workerID,
		Status:        status,
		LastHeartbeat: time.Now().UTC(),
	}

	data, err := json.Marshal(heartbeat)
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	// Workers beat on every consume loop; 60s TTL tolerates slow attempts.
	if err := q.client.Set(ctx, key, data, 60*time.Second).Err(); err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}

	return nil
}

// ActiveWorkers retrieves all workers with a live heartbeat
func (q *Queue) ActiveWorkers(ctx context.Context) ([]WorkerHeartbeat, error) {
	var workers []WorkerHeartbeat

	var cursor uint64
	for {
		keys, nextCursor, err := q.client.Scan(ctx, cursor, "worker:heartbeat:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning worker keys: %w", err)
		}

		for _, key := range keys {
			data, err := q.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting worker heartbeat: %w", err)
			}

			var heartbeat WorkerHeartbeat
			if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
				continue
			}

			workers = append(workers, heartbeat)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return workers, nil
}
