package webhook

import "errors"

/* Sentinel errors shared across the storage drivers and the HTTP layer.
 * Callers match with errors.Is; drivers wrap them with context.
 */
var (
	// ErrNotFound means the webhook or delivery id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means the caller supplied data that fails validation,
	// such as a malformed target URL or an empty event-type set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrWebhookMismatch means the delivery exists but belongs to a
	// different webhook than the one referenced in the request.
	ErrWebhookMismatch = errors.New("delivery belongs to a different webhook")

	// ErrDeliveriesPending blocks subscription deletion while deliveries are
	// still pending or retrying. History for settled deliveries cascades.
	ErrDeliveriesPending = errors.New("webhook has undelivered attempts")

	// ErrAttemptConflict signals the optimistic attempt-count guard fired:
	// another worker already recorded an attempt for this delivery.
	ErrAttemptConflict = errors.New("delivery attempt conflict")
)
