package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gymstack/webhook-engine/webhook/signature"
)

/* Service is the subscription registry: the business logic layer for
 * webhook subscriptions. Uses pointer semantics as it's an API, not data.
 */

// EventTypeChecker reports whether an event type is known to the platform.
// Backed by the eventtypes catalog in production wiring.
type EventTypeChecker interface {
	Known(eventType string) bool
}

// UseCase defines the business operations for subscription management
type UseCase interface {
	Create(ctx context.Context, tenantID, url string, eventTypes []string, rateLimit int) (Webhook, error)
	Get(ctx context.Context, id string) (Webhook, error)
	List(ctx context.Context, tenantID string, page Page) ([]Webhook, int64, error)
	Update(ctx context.Context, id string, url *string, eventTypes []string) (Webhook, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) (Webhook, error)
	Deactivate(ctx context.Context, id string) (Webhook, error)
	RotateSecret(ctx context.Context, id string) (Webhook, error)
}

type Service struct {
	Repo Repository
	// Types validates event types on create/update when set. A nil checker
	// accepts any well-formed type.
	Types EventTypeChecker
}

// NewService creates a new registry service with dependency injection
func NewService(repo Repository, types EventTypeChecker) *Service {
	return &Service{
		Repo:  repo,
		Types: types,
	}
}

/* Create registers a subscription with a freshly generated secret. The
 * returned Webhook carries the plaintext secret; this is the only read
 * path, besides RotateSecret, that ever exposes it.
 */
func (s *Service) Create(ctx context.Context, tenantID, url string, eventTypes []string, rateLimit int) (Webhook, error) {
	secret, err := signature.GenerateSecret()
	if err != nil {
		return Webhook{}, fmt.Errorf("generating webhook secret: %w", err)
	}

	now := time.Now().UTC()
	wh := Webhook{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		URL:        url,
		EventTypes: eventTypes,
		Secret:     secret.String(),
		RateLimit:  rateLimit,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := wh.Validate(); err != nil {
		return Webhook{}, err
	}
	if err := s.checkEventTypes(eventTypes); err != nil {
		return Webhook{}, err
	}

	if err := s.Repo.CreateWebhook(ctx, wh); err != nil {
		return Webhook{}, fmt.Errorf("storing webhook: %w", err)
	}

	return wh, nil
}

// Get fetches a single subscription
func (s *Service) Get(ctx context.Context, id string) (Webhook, error) {
	wh, err := s.Repo.GetWebhook(ctx, id)
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	return wh, nil
}

// List returns the tenant's subscriptions, newest first, with the total count
func (s *Service) List(ctx context.Context, tenantID string, page Page) ([]Webhook, int64, error) {
	all, total, err := s.Repo.ListWebhooks(ctx, tenantID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("listing webhooks: %w", err)
	}
	return all, total, nil
}

/* Update applies a partial update to URL and/or event types. nil url and
 * nil eventTypes mean "leave unchanged".
 */
func (s *Service) Update(ctx context.Context, id string, url *string, eventTypes []string) (Webhook, error) {
	wh, err := s.Repo.GetWebhook(ctx, id)
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}

	if url != nil {
		wh.URL = *url
	}
	if eventTypes != nil {
		wh.EventTypes = eventTypes
	}
	wh.UpdatedAt = time.Now().UTC()

	if err := wh.Validate(); err != nil {
		return Webhook{}, err
	}
	if err := s.checkEventTypes(wh.EventTypes); err != nil {
		return Webhook{}, err
	}

	if err := s.Repo.UpdateWebhook(ctx, wh); err != nil {
		return Webhook{}, fmt.Errorf("updating webhook: %w", err)
	}
	return wh, nil
}

/* Delete removes the subscription. Blocked with ErrDeliveriesPending while
 * undelivered attempts exist; settled delivery history cascades.
 */
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteWebhook(ctx, id); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	return nil
}

// Activate enables dispatch for the subscription. Idempotent.
func (s *Service) Activate(ctx context.Context, id string) (Webhook, error) {
	return s.setActive(ctx, id, true)
}

/* Deactivate stops new deliveries from being created. Attempts already
 * dispatched to workers run to completion; there is no cancel-in-flight.
 * Idempotent.
 */
func (s *Service) Deactivate(ctx context.Context, id string) (Webhook, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id string, active bool) (Webhook, error) {
	if err := s.Repo.SetActive(ctx, id, active); err != nil {
		return Webhook{}, fmt.Errorf("setting webhook active flag: %w", err)
	}
	wh, err := s.Repo.GetWebhook(ctx, id)
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	return wh, nil
}

/* RotateSecret atomically replaces the signing secret. The returned Webhook
 * carries the new plaintext secret exactly once; the old secret is invalid
 * for all attempts starting after the rotation. Attempts in flight keep the
 * secret fetched at attempt start.
 */
func (s *Service) RotateSecret(ctx context.Context, id string) (Webhook, error) {
	wh, err := s.Repo.GetWebhook(ctx, id)
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}

	secret, err := signature.GenerateSecret()
	if err != nil {
		return Webhook{}, fmt.Errorf("generating webhook secret: %w", err)
	}

	if err := s.Repo.UpdateSecret(ctx, id, secret.String()); err != nil {
		return Webhook{}, fmt.Errorf("rotating webhook secret: %w", err)
	}

	wh.Secret = secret.String()
	wh.UpdatedAt = time.Now().UTC()
	return wh, nil
}

func (s *Service) checkEventTypes(eventTypes []string) error {
	if s.Types == nil {
		return nil
	}
	for _, t := range eventTypes {
		if !s.Types.Known(t) {
			return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, t)
		}
	}
	return nil
}
