package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gymstack/webhook-engine/webhook"
)

/* Redis Streams implementation of webhook.Queue
 * The ready queue is a stream consumed through a consumer group, so each
 * queued delivery reaches exactly one worker and stays pending until acked.
 * Scheduled retries live in a sorted set scored by due time; MoveDue
 * promotes them into the stream.
 */

const (
	streamKey    = "webhook:deliveries" // Ready queue stream
	scheduledKey = "webhook:scheduled"  // ZSET of delivery_id scored by due unix time
	groupName    = "webhook-workers"    // Consumer group shared by all workers
)

type Queue struct {
	client   *redis.Client
	consumer string
}

// NewQueue connects to Redis and ensures the consumer group exists.
// consumer names this process inside the group; it must be unique per worker
// process for pending-entry accounting.
func NewQueue(addr, password string, db int, consumer string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	// BUSYGROUP means another process created it first; that's fine.
	if err := client.XGroupCreateMkStream(ctx, streamKey, groupName, "0").Err(); err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	return &Queue{
		client:   client,
		consumer: consumer,
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, deliveryID string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"delivery_id": deliveryID},
	}).Err()
	if err != nil {
		return fmt.Errorf("adding delivery to stream: %w", err)
	}
	return nil
}

func (q *Queue) Schedule(ctx context.Context, deliveryID string, at time.Time) error {
	err := q.client.ZAdd(ctx, scheduledKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: deliveryID,
	}).Err()
	if err != nil {
		return fmt.Errorf("scheduling delivery: %w", err)
	}
	return nil
}

// Consume blocks up to five seconds waiting for deliveries. An empty slice
// with nil error means the block timed out; callers just loop.
func (q *Queue) Consume(ctx context.Context) ([]webhook.QueueMessage, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: q.consumer,
		Streams:  []string{streamKey, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var msgs []webhook.QueueMessage
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			deliveryID, ok := msg.Values["delivery_id"].(string)
			if !ok {
				// Malformed entry; ack it away so it doesn't wedge the group.
				q.client.XAck(ctx, streamKey, groupName, msg.ID)
				continue
			}
			msgs = append(msgs, webhook.QueueMessage{
				MessageID:  msg.ID,
				DeliveryID: deliveryID,
			})
		}
	}
	return msgs, nil
}

func (q *Queue) Ack(ctx context.Context, msg webhook.QueueMessage) error {
	if err := q.client.XAck(ctx, streamKey, groupName, msg.MessageID).Err(); err != nil {
		return fmt.Errorf("acking stream message: %w", err)
	}
	return nil
}

func (q *Queue) MoveDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("ranging scheduled deliveries: %w", err)
	}

	moved := 0
	for _, deliveryID := range due {
		// Remove first: if only one of two racing schedulers wins the ZREM,
		// only the winner enqueues and the delivery is not duplicated.
		removed, err := q.client.ZRem(ctx, scheduledKey, deliveryID).Result()
		if err != nil {
			return moved, fmt.Errorf("removing scheduled delivery: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.Enqueue(ctx, deliveryID); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Depth reports ready and scheduled entry counts for the metrics collector.
func (q *Queue) Depth(ctx context.Context) (ready, scheduled int64, err error) {
	ready, err = q.client.XLen(ctx, streamKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("getting stream length: %w", err)
	}
	scheduled, err = q.client.ZCard(ctx, scheduledKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("getting scheduled set size: %w", err)
	}
	return ready, scheduled, nil
}

func (q *Queue) Close(_ context.Context) error {
	return q.client.Close()
}

// GetClient exposes the underlying client for the metrics collector.
func (q *Queue) GetClient() *redis.Client {
	return q.client
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
