package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

/* Delivery is one transmission of a single event to a single webhook's
 * target URL, including its retry history. One row per subscription per
 * dispatch; the row is the single source of truth for attempt count and
 * status.
 */
type Delivery struct {
	ID        string
	WebhookID string
	EventType string
	Payload   json.RawMessage
	Status    DeliveryStatus
	// Attempts only ever increases, including across manual retries.
	Attempts int
	// MaxAttempts is the attempt budget. It starts at the configured
	// maximum and grows by one full round on each manual retry, so the
	// lifetime attempt count stays bounded per operator intervention.
	MaxAttempts   int
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	ResponseCode  *int
	// ResponseBody holds a truncated excerpt of the last response body,
	// kept for operator diagnostics only.
	ResponseBody string
	CreatedAt    time.Time
}

// Envelope is the JSON body POSTed to the receiver. DeliveryID is included
// so receivers can deduplicate under at-least-once delivery.
type Envelope struct {
	DeliveryID string          `json:"deliveryId"`
	EventType  string          `json:"eventType"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// EnvelopeBody renders the outbound wire body for this delivery. The same
// bytes are signed and sent; receivers verify the signature over the raw body.
func (d Delivery) EnvelopeBody(now time.Time) ([]byte, error) {
	body, err := json.Marshal(Envelope{
		DeliveryID: d.ID,
		EventType:  d.EventType,
		Timestamp:  now.UTC(),
		Data:       d.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling delivery envelope: %w", err)
	}
	return body, nil
}

// Stats holds point-in-time delivery counts for one webhook.
type Stats struct {
	Total     int64 `json:"total"`
	Delivered int64 `json:"delivered"`
	Pending   int64 `json:"pending"`
	// Failed counts deliveries currently in the retrying state.
	Failed    int64 `json:"failed"`
	Exhausted int64 `json:"exhausted"`
}

// Page describes offset pagination for list queries.
type Page struct {
	Number  int
	PerPage int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	n := p.Number
	if n < 1 {
		n = 1
	}
	return (n - 1) * p.Limit()
}

// Limit returns the row limit for the page, clamped to [1, 200].
func (p Page) Limit() int {
	if p.PerPage < 1 {
		return 20
	}
	if p.PerPage > 200 {
		return 200
	}
	return p.PerPage
}
