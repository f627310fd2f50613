package webhook

import (
	"context"
	"fmt"
)

/* DeliveryService exposes delivery history and manual intervention to the
 * operator API. Worker-side failures never reach the original event
 * producer; this is the only window into them.
 */

// DeliveryUseCase defines the operator-facing delivery operations
type DeliveryUseCase interface {
	Deliveries(ctx context.Context, webhookID string, page Page) ([]Delivery, int64, error)
	Delivery(ctx context.Context, webhookID, deliveryID string) (Delivery, error)
	Retry(ctx context.Context, webhookID, deliveryID string) (Delivery, error)
	StatsFor(ctx context.Context, webhookID string) (Stats, error)
}

type DeliveryService struct {
	Repo    Repository
	Queue   Queue
	Backoff BackoffPolicy
}

// NewDeliveryService creates a new delivery service with dependency injection
func NewDeliveryService(repo Repository, queue Queue, backoff BackoffPolicy) *DeliveryService {
	return &DeliveryService{
		Repo:    repo,
		Queue:   queue,
		Backoff: backoff,
	}
}

// Deliveries returns the webhook's delivery history, newest first
func (s *DeliveryService) Deliveries(ctx context.Context, webhookID string, page Page) ([]Delivery, int64, error) {
	// Surface NotFound for the webhook itself rather than an empty page.
	if _, err := s.Repo.GetWebhook(ctx, webhookID); err != nil {
		return nil, 0, fmt.Errorf("getting webhook: %w", err)
	}

	list, total, err := s.Repo.ListDeliveries(ctx, webhookID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("listing deliveries: %w", err)
	}
	return list, total, nil
}

/* Delivery fetches one delivery, including the response excerpt. Returns
 * ErrWebhookMismatch when the delivery exists but belongs to a different
 * webhook than the one referenced.
 */
func (s *DeliveryService) Delivery(ctx context.Context, webhookID, deliveryID string) (Delivery, error) {
	d, err := s.Repo.GetDelivery(ctx, deliveryID)
	if err != nil {
		return Delivery{}, fmt.Errorf("getting delivery: %w", err)
	}
	if d.WebhookID != webhookID {
		return Delivery{}, ErrWebhookMismatch
	}
	return d, nil
}

/* Retry is the manual intervention command: an Exhausted or Retrying
 * delivery moves back to Pending and is enqueued immediately. The attempt
 * count is preserved and the budget grows by one full automatic round, so
 * lifetime attempts stay bounded per intervention.
 */
func (s *DeliveryService) Retry(ctx context.Context, webhookID, deliveryID string) (Delivery, error) {
	d, err := s.Delivery(ctx, webhookID, deliveryID)
	if err != nil {
		return Delivery{}, err
	}

	if d.Status != Exhausted && d.Status != Retrying {
		return Delivery{}, fmt.Errorf("%w: delivery is %s, only exhausted or retrying deliveries can be retried", ErrInvalidInput, d.Status)
	}

	d, err = s.Repo.MarkPending(ctx, deliveryID, s.Backoff.MaxAttempts)
	if err != nil {
		return Delivery{}, fmt.Errorf("marking delivery pending: %w", err)
	}

	if err := s.Queue.Enqueue(ctx, d.ID); err != nil {
		return Delivery{}, fmt.Errorf("enqueueing delivery: %w", err)
	}
	return d, nil
}

// StatsFor returns point-in-time delivery counts for the webhook
func (s *DeliveryService) StatsFor(ctx context.Context, webhookID string) (Stats, error) {
	if _, err := s.Repo.GetWebhook(ctx, webhookID); err != nil {
		return Stats{}, fmt.Errorf("getting webhook: %w", err)
	}

	stats, err := s.Repo.CountByStatus(ctx, webhookID)
	if err != nil {
		return Stats{}, fmt.Errorf("counting deliveries: %w", err)
	}
	return stats, nil
}
