package webhook

import (
	"context"
	"time"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// SubscriptionReader provides read operations for webhook subscriptions
type SubscriptionReader interface {
	/* Context is always the first parameter in functions that do I/O
	 * This allows for cancellation, timeouts, and shared values
	 */
	GetWebhook(ctx context.Context, id string) (Webhook, error)
	ListWebhooks(ctx context.Context, tenantID string, page Page) ([]Webhook, int64, error)
	/* FindMatching returns the active subscriptions for the tenant whose
	 * event-type set contains the given type. Exact string match.
	 */
	FindMatching(ctx context.Context, tenantID, eventType string) ([]Webhook, error)
}

// SubscriptionWriter provides write operations for webhook subscriptions
type SubscriptionWriter interface {
	CreateWebhook(ctx context.Context, wh Webhook) error
	UpdateWebhook(ctx context.Context, wh Webhook) error
	/* SetActive flips the active flag without touching delivery history.
	 * Idempotent: setting the current value is not an error.
	 */
	SetActive(ctx context.Context, id string, active bool) error
	/* UpdateSecret atomically replaces the signing secret. Attempts in
	 * flight keep the secret they fetched at attempt start.
	 */
	UpdateSecret(ctx context.Context, id, secret string) error
	/* DeleteWebhook removes the subscription and cascades settled delivery
	 * history. Returns ErrDeliveriesPending while any delivery is still
	 * pending or retrying.
	 */
	DeleteWebhook(ctx context.Context, id string) error
}

// DeliveryReader provides read operations for delivery records
type DeliveryReader interface {
	GetDelivery(ctx context.Context, id string) (Delivery, error)
	ListDeliveries(ctx context.Context, webhookID string, page Page) ([]Delivery, int64, error)
	// CountByStatus backs the operator stats endpoint. Direct count query,
	// no caching.
	CountByStatus(ctx context.Context, webhookID string) (Stats, error)
	// CountAllByStatus returns delivery counts by status name across all
	// webhooks, for the metrics exporter.
	CountAllByStatus(ctx context.Context) (map[string]int64, error)
	/* DueRetries returns retrying deliveries whose NextRetryAt has passed,
	 * used to reseed the queue after lost messages.
	 */
	DueRetries(ctx context.Context, now time.Time, limit int) ([]Delivery, error)
}

// DeliveryWriter provides write operations for delivery records
type DeliveryWriter interface {
	CreateDelivery(ctx context.Context, d Delivery) error
	/* RecordSuccess moves the delivery to Delivered. attempts is the new
	 * attempt count; the write fails with ErrAttemptConflict if another
	 * worker already recorded attempt number `attempts`.
	 */
	RecordSuccess(ctx context.Context, id string, attempts int, responseCode int, at time.Time) error
	/* RecordFailure stores the attempt outcome and either schedules the
	 * next retry (nextRetryAt set, status Retrying) or terminates the
	 * delivery (nextRetryAt nil, status Exhausted). Same optimistic guard
	 * as RecordSuccess.
	 */
	RecordFailure(ctx context.Context, id string, attempts int, responseCode *int, responseBody string, nextRetryAt *time.Time, at time.Time) error
	/* MarkPending implements the manual retry command: Exhausted or
	 * Retrying moves back to Pending, scheduling resets, the attempt count
	 * is preserved and the budget grows by extraBudget.
	 */
	MarkPending(ctx context.Context, id string, extraBudget int) (Delivery, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	SubscriptionReader
	SubscriptionWriter
	DeliveryReader
	DeliveryWriter
	Close(ctx context.Context) error
}

// Queue decouples delivery-record creation from network sends. The
// dispatcher enqueues ids; workers consume, attempt, then ack. Consumer
// groups hand each message to exactly one worker, which together with the
// store's attempt guard enforces single-attempt-in-flight per delivery.
type Queue interface {
	// Enqueue makes the delivery available to workers immediately.
	Enqueue(ctx context.Context, deliveryID string) error
	// Schedule parks the delivery until `at`, then MoveDue promotes it.
	Schedule(ctx context.Context, deliveryID string, at time.Time) error
	/* Consume blocks until deliveries are available or the context is
	 * cancelled. Returned messages must be acked once the attempt has
	 * reached a terminal-for-that-attempt result.
	 */
	Consume(ctx context.Context) ([]QueueMessage, error)
	Ack(ctx context.Context, msg QueueMessage) error
	// MoveDue promotes scheduled deliveries whose time has come into the
	// ready queue. Returns the number promoted.
	MoveDue(ctx context.Context, now time.Time) (int, error)
	Close(ctx context.Context) error
}

// QueueMessage is one consumed queue entry.
type QueueMessage struct {
	// MessageID identifies the queue entry for acking; its format belongs
	// to the queue driver.
	MessageID  string
	DeliveryID string
}
