package webhook

import (
	"fmt"
	"net/url"
	"time"
)

/* Webhook represents a tenant's outbound subscription: a target URL plus
 * the set of event types it wants to receive, authenticated via a shared
 * secret. Uses value semantics as it represents data, not behavior.
 */
type Webhook struct {
	ID         string
	TenantID   string
	URL        string
	EventTypes []string
	// Secret is the signing secret in its whsec_ form. It is returned in
	// plaintext exactly once, on create and on rotate, and is stripped from
	// every other read path by the HTTP layer.
	Secret string
	// RateLimit is the maximum outbound requests per minute for this
	// subscription. Zero means unlimited.
	RateLimit int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the invariants that must hold for every stored subscription.
func (w Webhook) Validate() error {
	if w.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
	}
	if err := ValidateTargetURL(w.URL); err != nil {
		return err
	}
	if len(w.EventTypes) == 0 {
		return fmt.Errorf("%w: event type set cannot be empty", ErrInvalidInput)
	}
	if w.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Subscribes reports whether the subscription's event-type set contains the
// given type. Matching is exact, no wildcard semantics.
func (w Webhook) Subscribes(eventType string) bool {
	for _, t := range w.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// ValidateTargetURL checks that the target is an absolute http or https URL.
func ValidateTargetURL(target string) error {
	if target == "" {
		return fmt.Errorf("%w: target url is required", ErrInvalidInput)
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: parsing target url: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: target url scheme must be http or https, got %q", ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: target url must be absolute", ErrInvalidInput)
	}
	return nil
}
