package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymstack/webhook-engine/webhook"
	"github.com/gymstack/webhook-engine/webhook/memory"
)

func newWebhook(id, tenantID string, eventTypes []string, createdAt time.Time) webhook.Webhook {
	return webhook.Webhook{
		ID:         id,
		TenantID:   tenantID,
		URL:        "https://example.com/" + id,
		EventTypes: eventTypes,
		Secret:     "whsec_" + id,
		Active:     true,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func newDelivery(id, webhookID string, status webhook.DeliveryStatus, createdAt time.Time) webhook.Delivery {
	return webhook.Delivery{
		ID:          id,
		WebhookID:   webhookID,
		EventType:   "member.created",
		Payload:     []byte(`{}`),
		Status:      status,
		MaxAttempts: 5,
		CreatedAt:   createdAt,
	}
}

func TestWebhookCRUD(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("create and get", func(t *testing.T) {
		repo := memory.NewRepository()
		wh := newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)

		require.NoError(t, repo.CreateWebhook(ctx, wh))

		got, err := repo.GetWebhook(ctx, "wh-1")
		require.NoError(t, err)
		assert.Equal(t, wh, got)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		repo := memory.NewRepository()
		wh := newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)

		require.NoError(t, repo.CreateWebhook(ctx, wh))
		err := repo.CreateWebhook(ctx, wh)
		require.Error(t, err)
		assert.ErrorIs(t, err, webhook.ErrInvalidInput)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		repo := memory.NewRepository()
		_, err := repo.GetWebhook(ctx, "missing")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})

	t.Run("stored copy is isolated from the caller", func(t *testing.T) {
		repo := memory.NewRepository()
		wh := newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)
		require.NoError(t, repo.CreateWebhook(ctx, wh))

		wh.EventTypes[0] = "mutated"

		got, err := repo.GetWebhook(ctx, "wh-1")
		require.NoError(t, err)
		assert.Equal(t, "member.created", got.EventTypes[0])
	})

	t.Run("update changes url, events and rate limit only", func(t *testing.T) {
		repo := memory.NewRepository()
		wh := newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)
		require.NoError(t, repo.CreateWebhook(ctx, wh))

		changed := wh
		changed.URL = "https://example.com/new"
		changed.EventTypes = []string{"invoice.paid"}
		changed.RateLimit = 60
		changed.Secret = "whsec_attacker"
		changed.Active = false
		require.NoError(t, repo.UpdateWebhook(ctx, changed))

		got, err := repo.GetWebhook(ctx, "wh-1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/new", got.URL)
		assert.Equal(t, []string{"invoice.paid"}, got.EventTypes)
		assert.Equal(t, 60, got.RateLimit)
		assert.Equal(t, wh.Secret, got.Secret)
		assert.True(t, got.Active)
	})

	t.Run("set active and rotate secret", func(t *testing.T) {
		repo := memory.NewRepository()
		wh := newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)
		require.NoError(t, repo.CreateWebhook(ctx, wh))

		require.NoError(t, repo.SetActive(ctx, "wh-1", false))
		got, err := repo.GetWebhook(ctx, "wh-1")
		require.NoError(t, err)
		assert.False(t, got.Active)

		require.NoError(t, repo.UpdateSecret(ctx, "wh-1", "whsec_rotated"))
		got, err = repo.GetWebhook(ctx, "wh-1")
		require.NoError(t, err)
		assert.Equal(t, "whsec_rotated", got.Secret)
	})
}

func TestListWebhooks(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		wh := newWebhook(fmt.Sprintf("wh-%d", i), "tenant-1", []string{"member.created"}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.CreateWebhook(ctx, wh))
	}
	other := newWebhook("wh-other", "tenant-2", []string{"member.created"}, base)
	require.NoError(t, repo.CreateWebhook(ctx, other))

	t.Run("scoped to tenant, newest first", func(t *testing.T) {
		list, total, err := repo.ListWebhooks(ctx, "tenant-1", webhook.Page{Number: 1, PerPage: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, list, 5)
		assert.Equal(t, "wh-4", list[0].ID)
		assert.Equal(t, "wh-0", list[4].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		list, total, err := repo.ListWebhooks(ctx, "tenant-1", webhook.Page{Number: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, list, 2)
		assert.Equal(t, "wh-2", list[0].ID)
		assert.Equal(t, "wh-1", list[1].ID)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		list, total, err := repo.ListWebhooks(ctx, "tenant-1", webhook.Page{Number: 10, PerPage: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Empty(t, list)
	})

	t.Run("unknown tenant is empty, not an error", func(t *testing.T) {
		list, total, err := repo.ListWebhooks(ctx, "tenant-404", webhook.Page{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
	})
}

func TestFindMatching(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Now().UTC()

	subscribed := newWebhook("wh-1", "tenant-1", []string{"member.created", "invoice.paid"}, now)
	otherEvent := newWebhook("wh-2", "tenant-1", []string{"booking.confirmed"}, now)
	paused := newWebhook("wh-3", "tenant-1", []string{"member.created"}, now)
	paused.Active = false
	otherTenant := newWebhook("wh-4", "tenant-2", []string{"member.created"}, now)

	for _, wh := range []webhook.Webhook{subscribed, otherEvent, paused, otherTenant} {
		require.NoError(t, repo.CreateWebhook(ctx, wh))
	}

	t.Run("matches active subscriptions of the tenant only", func(t *testing.T) {
		matching, err := repo.FindMatching(ctx, "tenant-1", "member.created")
		require.NoError(t, err)
		require.Len(t, matching, 1)
		assert.Equal(t, "wh-1", matching[0].ID)
	})

	t.Run("exact event match, no wildcard", func(t *testing.T) {
		matching, err := repo.FindMatching(ctx, "tenant-1", "member")
		require.NoError(t, err)
		assert.Empty(t, matching)
	})
}

func TestDeleteWebhook(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("blocked while deliveries are pending", func(t *testing.T) {
		repo := memory.NewRepository()
		require.NoError(t, repo.CreateWebhook(ctx, newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)))
		require.NoError(t, repo.CreateDelivery(ctx, newDelivery("d-1", "wh-1", webhook.Pending, now)))

		err := repo.DeleteWebhook(ctx, "wh-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, webhook.ErrDeliveriesPending)

		_, err = repo.GetWebhook(ctx, "wh-1")
		require.NoError(t, err)
	})

	t.Run("blocked while deliveries are retrying", func(t *testing.T) {
		repo := memory.NewRepository()
		require.NoError(t, repo.CreateWebhook(ctx, newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)))
		require.NoError(t, repo.CreateDelivery(ctx, newDelivery("d-1", "wh-1", webhook.Retrying, now)))

		err := repo.DeleteWebhook(ctx, "wh-1")
		assert.ErrorIs(t, err, webhook.ErrDeliveriesPending)
	})

	t.Run("settled history cascades", func(t *testing.T) {
		repo := memory.NewRepository()
		require.NoError(t, repo.CreateWebhook(ctx, newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)))
		require.NoError(t, repo.CreateDelivery(ctx, newDelivery("d-1", "wh-1", webhook.Delivered, now)))
		require.NoError(t, repo.CreateDelivery(ctx, newDelivery("d-2", "wh-1", webhook.Exhausted, now)))

		require.NoError(t, repo.DeleteWebhook(ctx, "wh-1"))

		_, err := repo.GetWebhook(ctx, "wh-1")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
		_, err = repo.GetDelivery(ctx, "d-1")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
		_, err = repo.GetDelivery(ctx, "d-2")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})
}

func TestAttemptRecording(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	setup := func(t *testing.T) *memory.Repository {
		t.Helper()
		repo := memory.NewRepository()
		require.NoError(t, repo.CreateWebhook(ctx, newWebhook("wh-1", "tenant-1", []string{"member.created"}, now)))
		require.NoError(t, repo.CreateDelivery(ctx, newDelivery("d-1", "wh-1", webhook.Pending, now)))
		return repo
	}

	t.Run("success settles the delivery", func(t *testing.T) {
		repo := setup(t)
		require.NoError(t, repo.RecordSuccess(ctx, "d-1", 1, 200, now))

		d, err := repo.GetDelivery(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Delivered, d.Status)
		assert.Equal(t, 1, d.Attempts)
		require.NotNil(t, d.ResponseCode)
		assert.Equal(t, 200, *d.ResponseCode)
	})

	t.Run("failure with next retry moves to retrying", func(t *testing.T) {
		repo := setup(t)
		code := 503
		retryAt := now.Add(30 * time.Second)
		require.NoError(t, repo.RecordFailure(ctx, "d-1", 1, &code, "unavailable", &retryAt, now))

		d, err := repo.GetDelivery(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Retrying, d.Status)
		require.NotNil(t, d.NextRetryAt)
		assert.Equal(t, "unavailable", d.ResponseBody)
	})

	t.Run("failure without next retry exhausts", func(t *testing.T) {
		repo := setup(t)
		code := 500
		require.NoError(t, repo.RecordFailure(ctx, "d-1", 1, &code, "boom", nil, now))

		d, err := repo.GetDelivery(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Exhausted, d.Status)
		assert.Nil(t, d.NextRetryAt)
	})

	t.Run("stale attempt number conflicts", func(t *testing.T) {
		repo := setup(t)
		require.NoError(t, repo.RecordSuccess(ctx, "d-1", 1, 200, now))

		err := repo.RecordSuccess(ctx, "d-1", 1, 200, now)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)

		err = repo.RecordFailure(ctx, "d-1", 1, nil, "", nil, now)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)
	})

	t.Run("mark pending grows the budget and keeps attempts", func(t *testing.T) {
		repo := setup(t)
		code := 500
		require.NoError(t, repo.RecordFailure(ctx, "d-1", 1, &code, "", nil, now))

		d, err := repo.MarkPending(ctx, "d-1", 5)
		require.NoError(t, err)
		assert.Equal(t, webhook.Pending, d.Status)
		assert.Equal(t, 1, d.Attempts)
		assert.Equal(t, 10, d.MaxAttempts)
		assert.Nil(t, d.NextRetryAt)
	})

	t.Run("mark pending conflicts on a settled delivery", func(t *testing.T) {
		repo := setup(t)
		require.NoError(t, repo.RecordSuccess(ctx, "d-1", 1, 200, now))

		// A worker settled the delivery after the caller's status check;
		// the delivered outcome must stand.
		_, err := repo.MarkPending(ctx, "d-1", 5)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)

		d, err := repo.GetDelivery(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Delivered, d.Status)
	})

	t.Run("mark pending conflicts on a pending delivery", func(t *testing.T) {
		repo := setup(t)

		_, err := repo.MarkPending(ctx, "d-1", 5)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)
	})
}

func TestDeliveryQueries(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	base := time.Now().UTC()

	require.NoError(t, repo.CreateWebhook(ctx, newWebhook("wh-1", "tenant-1", []string{"member.created"}, base)))

	statuses := []webhook.DeliveryStatus{webhook.Pending, webhook.Delivered, webhook.Delivered, webhook.Retrying, webhook.Exhausted}
	for i, status := range statuses {
		d := newDelivery(fmt.Sprintf("d-%d", i), "wh-1", status, base.Add(time.Duration(i)*time.Second))
		if status == webhook.Retrying {
			at := base.Add(-time.Minute)
			d.NextRetryAt = &at
			d.Attempts = 1
		}
		require.NoError(t, repo.CreateDelivery(ctx, d))
	}

	t.Run("list newest first", func(t *testing.T) {
		list, total, err := repo.ListDeliveries(ctx, "wh-1", webhook.Page{Number: 1, PerPage: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, list, 5)
		assert.Equal(t, "d-4", list[0].ID)
	})

	t.Run("count by status", func(t *testing.T) {
		stats, err := repo.CountByStatus(ctx, "wh-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Stats{Total: 5, Delivered: 2, Pending: 1, Failed: 1, Exhausted: 1}, stats)
	})

	t.Run("count all by status", func(t *testing.T) {
		counts, err := repo.CountAllByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts["delivered"])
		assert.Equal(t, int64(1), counts["retrying"])
	})

	t.Run("due retries returns overdue retrying deliveries", func(t *testing.T) {
		due, err := repo.DueRetries(ctx, base, 100)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "d-3", due[0].ID)
	})

	t.Run("due retries respects the cutoff", func(t *testing.T) {
		due, err := repo.DueRetries(ctx, base.Add(-2*time.Minute), 100)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}
