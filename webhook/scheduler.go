package webhook

import (
	"context"
	"log/slog"
	"time"
)

/* Scheduler drives re-delivery. Every tick it promotes due entries from the
 * queue's scheduled set into the ready queue, then reseeds from the store
 * any retrying delivery whose NextRetryAt has passed but whose queue entry
 * was lost. The reseed makes retry delivery at-least-once: a duplicate
 * enqueue is harmless because settled deliveries are skipped by workers.
 */
type Scheduler struct {
	Repo     Repository
	Queue    Queue
	Interval time.Duration
	// ReseedAfter is the grace period before a due retry missing from the
	// queue is re-enqueued from the store.
	ReseedAfter time.Duration
	// BatchSize bounds one reseed scan.
	BatchSize int
	Log       *slog.Logger

	// reseeded remembers recently re-enqueued ids so a backlogged delivery
	// is not enqueued again on every tick while workers catch up.
	reseeded map[string]time.Time
}

// NewScheduler creates a scheduler with sensible defaults.
func NewScheduler(repo Repository, queue Queue, log *slog.Logger) *Scheduler {
	return &Scheduler{
		Repo:        repo,
		Queue:       queue,
		Interval:    time.Second,
		ReseedAfter: time.Minute,
		BatchSize:   100,
		Log:         log,
		reseeded:    make(map[string]time.Time),
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	if s.reseeded == nil {
		s.reseeded = make(map[string]time.Time)
	}

	if _, err := s.Queue.MoveDue(ctx, now); err != nil {
		s.Log.Error("moving due retries", "error", err)
	}

	due, err := s.Repo.DueRetries(ctx, now.Add(-s.ReseedAfter), s.BatchSize)
	if err != nil {
		s.Log.Error("scanning due retries", "error", err)
		return
	}
	for _, d := range due {
		if at, ok := s.reseeded[d.ID]; ok && now.Sub(at) < s.ReseedAfter {
			continue
		}
		if err := s.Queue.Enqueue(ctx, d.ID); err != nil {
			s.Log.Error("reseeding retry", "delivery_id", d.ID, "error", err)
			continue
		}
		s.reseeded[d.ID] = now
	}

	for id, at := range s.reseeded {
		if now.Sub(at) >= s.ReseedAfter {
			delete(s.reseeded, id)
		}
	}
}
