package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TestEventType is the synthetic event sent by the test-delivery command.
const TestEventType = "test.ping"

/* Dispatcher fans a domain event out to all matching active subscriptions
 * as new Delivery records. This is the single coupling point between the
 * rest of the platform and the webhook engine: business code calls
 * Dispatch when an invoice is issued, a booking confirmed, and so on.
 *
 * Dispatch performs record creation and enqueueing only. Network sends
 * happen in the workers; a dispatch call never blocks on receiver I/O.
 */
type Dispatcher struct {
	Repo    Repository
	Queue   Queue
	Backoff BackoffPolicy
}

// NewDispatcher creates a new dispatcher with dependency injection
func NewDispatcher(repo Repository, queue Queue, backoff BackoffPolicy) *Dispatcher {
	return &Dispatcher{
		Repo:    repo,
		Queue:   queue,
		Backoff: backoff,
	}
}

/* Dispatch creates exactly one Pending delivery per matching subscription
 * and enqueues each to the workers. A registry lookup failure fails the
 * whole dispatch synchronously; nothing is silently dropped. Tenant scoping
 * is explicit: there is no ambient tenant context.
 */
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID, eventType string, data json.RawMessage) ([]Delivery, error) {
	if eventType == "" {
		return nil, fmt.Errorf("%w: event type is required", ErrInvalidInput)
	}

	matching, err := d.Repo.FindMatching(ctx, tenantID, eventType)
	if err != nil {
		return nil, fmt.Errorf("finding matching subscriptions: %w", err)
	}

	deliveries := make([]Delivery, 0, len(matching))
	for _, wh := range matching {
		dl, err := d.createDelivery(ctx, wh, eventType, data)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, dl)
	}

	return deliveries, nil
}

/* Test sends a synthetic test.ping event to one webhook, bypassing the
 * event-type filter and the active flag. An explicit operator action: it
 * works against paused subscriptions so targets can be verified before
 * going live.
 */
func (d *Dispatcher) Test(ctx context.Context, webhookID string) (Delivery, error) {
	wh, err := d.Repo.GetWebhook(ctx, webhookID)
	if err != nil {
		return Delivery{}, fmt.Errorf("getting webhook: %w", err)
	}

	data, err := json.Marshal(map[string]string{
		"webhookId": wh.ID,
		"message":   "test delivery",
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("marshaling test payload: %w", err)
	}

	return d.createDelivery(ctx, wh, TestEventType, data)
}

func (d *Dispatcher) createDelivery(ctx context.Context, wh Webhook, eventType string, data json.RawMessage) (Delivery, error) {
	dl := Delivery{
		ID:          uuid.New().String(),
		WebhookID:   wh.ID,
		EventType:   eventType,
		Payload:     data,
		Status:      Pending,
		Attempts:    0,
		MaxAttempts: d.Backoff.MaxAttempts,
		CreatedAt:   time.Now().UTC(),
	}

	if err := d.Repo.CreateDelivery(ctx, dl); err != nil {
		return Delivery{}, fmt.Errorf("storing delivery: %w", err)
	}
	if err := d.Queue.Enqueue(ctx, dl.ID); err != nil {
		return Delivery{}, fmt.Errorf("enqueueing delivery: %w", err)
	}
	return dl, nil
}
