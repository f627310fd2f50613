package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gymstack/webhook-engine/webhook"
)

/* In-memory implementation of webhook.Repository
 * Used by unit tests and the dev storage driver. Every method copies on
 * the way in and out so callers never share slices or pointers with the
 * store.
 */
type Repository struct {
	mu         sync.RWMutex
	webhooks   map[string]webhook.Webhook
	deliveries map[string]webhook.Delivery
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		webhooks:   make(map[string]webhook.Webhook),
		deliveries: make(map[string]webhook.Delivery),
	}
}

func (r *Repository) CreateWebhook(_ context.Context, wh webhook.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.webhooks[wh.ID]; ok {
		return fmt.Errorf("%w: webhook %s already exists", webhook.ErrInvalidInput, wh.ID)
	}
	r.webhooks[wh.ID] = copyWebhook(wh)
	return nil
}

func (r *Repository) GetWebhook(_ context.Context, id string) (webhook.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wh, ok := r.webhooks[id]
	if !ok {
		return webhook.Webhook{}, fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}
	return copyWebhook(wh), nil
}

func (r *Repository) ListWebhooks(_ context.Context, tenantID string, page webhook.Page) ([]webhook.Webhook, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []webhook.Webhook
	for _, wh := range r.webhooks {
		if wh.TenantID == tenantID {
			all = append(all, copyWebhook(wh))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	return slicePage(all, page), total, nil
}

func (r *Repository) FindMatching(_ context.Context, tenantID, eventType string) ([]webhook.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []webhook.Webhook
	for _, wh := range r.webhooks {
		if wh.TenantID == tenantID && wh.Active && wh.Subscribes(eventType) {
			matching = append(matching, copyWebhook(wh))
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID < matching[j].ID })
	return matching, nil
}

func (r *Repository) UpdateWebhook(_ context.Context, wh webhook.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.webhooks[wh.ID]
	if !ok {
		return fmt.Errorf("webhook %s: %w", wh.ID, webhook.ErrNotFound)
	}

	existing.URL = wh.URL
	existing.EventTypes = append([]string(nil), wh.EventTypes...)
	existing.RateLimit = wh.RateLimit
	existing.UpdatedAt = wh.UpdatedAt
	r.webhooks[wh.ID] = existing
	return nil
}

func (r *Repository) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wh, ok := r.webhooks[id]
	if !ok {
		return fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}
	wh.Active = active
	wh.UpdatedAt = time.Now().UTC()
	r.webhooks[id] = wh
	return nil
}

func (r *Repository) UpdateSecret(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wh, ok := r.webhooks[id]
	if !ok {
		return fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}
	wh.Secret = secret
	wh.UpdatedAt = time.Now().UTC()
	r.webhooks[id] = wh
	return nil
}

func (r *Repository) DeleteWebhook(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.webhooks[id]; !ok {
		return fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}

	for _, d := range r.deliveries {
		if d.WebhookID == id && d.Status.Attemptable() {
			return webhook.ErrDeliveriesPending
		}
	}

	delete(r.webhooks, id)
	for did, d := range r.deliveries {
		if d.WebhookID == id {
			delete(r.deliveries, did)
		}
	}
	return nil
}

func (r *Repository) CreateDelivery(_ context.Context, d webhook.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.deliveries[d.ID]; ok {
		return fmt.Errorf("%w: delivery %s already exists", webhook.ErrInvalidInput, d.ID)
	}
	r.deliveries[d.ID] = copyDelivery(d)
	return nil
}

func (r *Repository) GetDelivery(_ context.Context, id string) (webhook.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.deliveries[id]
	if !ok {
		return webhook.Delivery{}, fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
	}
	return copyDelivery(d), nil
}

func (r *Repository) ListDeliveries(_ context.Context, webhookID string, page webhook.Page) ([]webhook.Delivery, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []webhook.Delivery
	for _, d := range r.deliveries {
		if d.WebhookID == webhookID {
			all = append(all, copyDelivery(d))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	return slicePage(all, page), total, nil
}

func (r *Repository) CountByStatus(_ context.Context, webhookID string) (webhook.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats webhook.Stats
	for _, d := range r.deliveries {
		if d.WebhookID != webhookID {
			continue
		}
		stats.Total++
		switch d.Status {
		case webhook.Pending:
			stats.Pending++
		case webhook.Delivered:
			stats.Delivered++
		case webhook.Retrying:
			stats.Failed++
		case webhook.Exhausted:
			stats.Exhausted++
		}
	}
	return stats, nil
}

func (r *Repository) CountAllByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, d := range r.deliveries {
		counts[d.Status.String()]++
	}
	return counts, nil
}

func (r *Repository) DueRetries(_ context.Context, now time.Time, limit int) ([]webhook.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []webhook.Delivery
	for _, d := range r.deliveries {
		if d.Status == webhook.Retrying && d.NextRetryAt != nil && !d.NextRetryAt.After(now) {
			due = append(due, copyDelivery(d))
			if limit > 0 && len(due) >= limit {
				break
			}
		}
	}
	return due, nil
}

func (r *Repository) RecordSuccess(_ context.Context, id string, attempts, responseCode int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
	}
	if d.Attempts != attempts-1 {
		return fmt.Errorf("delivery %s: %w", id, webhook.ErrAttemptConflict)
	}

	d.Status = webhook.Delivered
	d.Attempts = attempts
	d.LastAttemptAt = &at
	d.NextRetryAt = nil
	d.ResponseCode = &responseCode
	r.deliveries[id] = d
	return nil
}

func (r *Repository) RecordFailure(_ context.Context, id string, attempts int, responseCode *int, responseBody string, nextRetryAt *time.Time, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
	}
	if d.Attempts != attempts-1 {
		return fmt.Errorf("delivery %s: %w", id, webhook.ErrAttemptConflict)
	}

	if nextRetryAt != nil {
		d.Status = webhook.Retrying
		t := *nextRetryAt
		d.NextRetryAt = &t
	} else {
		d.Status = webhook.Exhausted
		d.NextRetryAt = nil
	}
	d.Attempts = attempts
	d.LastAttemptAt = &at
	d.ResponseCode = copyInt(responseCode)
	d.ResponseBody = responseBody
	r.deliveries[id] = d
	return nil
}

func (r *Repository) MarkPending(_ context.Context, id string, extraBudget int) (webhook.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deliveries[id]
	if !ok {
		return webhook.Delivery{}, fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
	}
	if d.Status != webhook.Exhausted && d.Status != webhook.Retrying {
		return webhook.Delivery{}, fmt.Errorf("delivery %s: %w", id, webhook.ErrAttemptConflict)
	}

	d.Status = webhook.Pending
	d.NextRetryAt = nil
	d.MaxAttempts += extraBudget
	r.deliveries[id] = d
	return copyDelivery(d), nil
}

func (r *Repository) Close(_ context.Context) error {
	return nil
}

func copyWebhook(wh webhook.Webhook) webhook.Webhook {
	wh.EventTypes = append([]string(nil), wh.EventTypes...)
	return wh
}

func copyDelivery(d webhook.Delivery) webhook.Delivery {
	d.Payload = append([]byte(nil), d.Payload...)
	d.LastAttemptAt = copyTime(d.LastAttemptAt)
	d.NextRetryAt = copyTime(d.NextRetryAt)
	d.ResponseCode = copyInt(d.ResponseCode)
	return d
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func slicePage[T any](all []T, page webhook.Page) []T {
	offset := page.Offset()
	if offset >= len(all) {
		return nil
	}
	end := offset + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
