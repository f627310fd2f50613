//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymstack/webhook-engine/webhook"
)

func testWebhook(id, tenantID string, eventTypes []string) webhook.Webhook {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return webhook.Webhook{
		ID:         id,
		TenantID:   tenantID,
		URL:        "https://example.com/" + id,
		EventTypes: eventTypes,
		Secret:     "whsec_" + id,
		RateLimit:  60,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testDelivery(id, webhookID string, status webhook.DeliveryStatus) webhook.Delivery {
	return webhook.Delivery{
		ID:          id,
		WebhookID:   webhookID,
		EventType:   "member.created",
		Payload:     []byte(`{"memberId":"m-1"}`),
		Status:      status,
		MaxAttempts: 5,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRepository_Webhooks_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, cleanup := SetupPostgresContainer(t, ctx)
	defer cleanup()

	repo := CreateTestRepository(t, ctx, pgContainer.ConnStr)
	defer repo.Close(ctx)

	t.Run("create and get round trip", func(t *testing.T) {
		wh := testWebhook("wh-rt", "tenant-1", []string{"member.created", "invoice.paid"})
		require.NoError(t, repo.CreateWebhook(ctx, wh))

		got, err := repo.GetWebhook(ctx, "wh-rt")
		require.NoError(t, err)
		assert.Equal(t, wh.TenantID, got.TenantID)
		assert.Equal(t, wh.URL, got.URL)
		assert.Equal(t, wh.EventTypes, got.EventTypes)
		assert.Equal(t, wh.Secret, got.Secret)
		assert.Equal(t, wh.RateLimit, got.RateLimit)
		assert.True(t, got.Active)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := repo.GetWebhook(ctx, "missing")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})

	t.Run("find matching filters on tenant, active and event type", func(t *testing.T) {
		require.NoError(t, repo.CreateWebhook(ctx, testWebhook("wh-m1", "tenant-fm", []string{"booking.confirmed"})))
		require.NoError(t, repo.CreateWebhook(ctx, testWebhook("wh-m2", "tenant-fm", []string{"invoice.paid"})))
		paused := testWebhook("wh-m3", "tenant-fm", []string{"booking.confirmed"})
		paused.Active = false
		require.NoError(t, repo.CreateWebhook(ctx, paused))
		require.NoError(t, repo.SetActive(ctx, "wh-m3", false))

		matching, err := repo.FindMatching(ctx, "tenant-fm", "booking.confirmed")
		require.NoError(t, err)
		require.Len(t, matching, 1)
		assert.Equal(t, "wh-m1", matching[0].ID)
	})

	t.Run("pagination over list", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			wh := testWebhook(fmt.Sprintf("wh-p%d", i), "tenant-page", []string{"member.created"})
			wh.CreatedAt = wh.CreatedAt.Add(time.Duration(i) * time.Second)
			require.NoError(t, repo.CreateWebhook(ctx, wh))
		}

		list, total, err := repo.ListWebhooks(ctx, "tenant-page", webhook.Page{Number: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, list, 2)
		assert.Equal(t, "wh-p2", list[0].ID)
	})

	t.Run("update secret and active flag", func(t *testing.T) {
		require.NoError(t, repo.CreateWebhook(ctx, testWebhook("wh-u1", "tenant-u", []string{"member.created"})))

		require.NoError(t, repo.UpdateSecret(ctx, "wh-u1", "whsec_rotated"))
		require.NoError(t, repo.SetActive(ctx, "wh-u1", false))

		got, err := repo.GetWebhook(ctx, "wh-u1")
		require.NoError(t, err)
		assert.Equal(t, "whsec_rotated", got.Secret)
		assert.False(t, got.Active)
	})
}

func TestRepository_Deliveries_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, cleanup := SetupPostgresContainer(t, ctx)
	defer cleanup()

	repo := CreateTestRepository(t, ctx, pgContainer.ConnStr)
	defer repo.Close(ctx)

	require.NoError(t, repo.CreateWebhook(ctx, testWebhook("wh-1", "tenant-1", []string{"member.created"})))

	t.Run("attempt guard allows exactly one recording per attempt", func(t *testing.T) {
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-guard", "wh-1", webhook.Pending)))

		now := time.Now().UTC()
		require.NoError(t, repo.RecordSuccess(ctx, "d-guard", 1, 200, now))

		err := repo.RecordSuccess(ctx, "d-guard", 1, 200, now)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)

		err = repo.RecordFailure(ctx, "d-guard", 1, nil, "", nil, now)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)
	})

	t.Run("failure with retry schedules, without retry exhausts", func(t *testing.T) {
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-fail", "wh-1", webhook.Pending)))

		now := time.Now().UTC().Truncate(time.Microsecond)
		code := 503
		retryAt := now.Add(30 * time.Second)
		require.NoError(t, repo.RecordFailure(ctx, "d-fail", 1, &code, "unavailable", &retryAt, now))

		d, err := repo.GetDelivery(ctx, "d-fail")
		require.NoError(t, err)
		assert.Equal(t, webhook.Retrying, d.Status)
		require.NotNil(t, d.NextRetryAt)
		assert.WithinDuration(t, retryAt, *d.NextRetryAt, time.Millisecond)
		assert.Equal(t, "unavailable", d.ResponseBody)

		require.NoError(t, repo.RecordFailure(ctx, "d-fail", 2, &code, "still down", nil, now))
		d, err = repo.GetDelivery(ctx, "d-fail")
		require.NoError(t, err)
		assert.Equal(t, webhook.Exhausted, d.Status)
		assert.Nil(t, d.NextRetryAt)
	})

	t.Run("due retries scan", func(t *testing.T) {
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-due", "wh-1", webhook.Pending)))

		now := time.Now().UTC()
		code := 500
		past := now.Add(-time.Minute)
		require.NoError(t, repo.RecordFailure(ctx, "d-due", 1, &code, "", &past, now))

		due, err := repo.DueRetries(ctx, now, 100)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "d-due", due[0].ID)
	})

	t.Run("mark pending grows budget", func(t *testing.T) {
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-mark", "wh-1", webhook.Pending)))
		now := time.Now().UTC()
		require.NoError(t, repo.RecordFailure(ctx, "d-mark", 1, nil, "", nil, now))

		d, err := repo.MarkPending(ctx, "d-mark", 5)
		require.NoError(t, err)
		assert.Equal(t, webhook.Pending, d.Status)
		assert.Equal(t, 1, d.Attempts)
		assert.Equal(t, 10, d.MaxAttempts)
	})

	t.Run("mark pending conflicts on a settled delivery", func(t *testing.T) {
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-mark-won", "wh-1", webhook.Pending)))
		require.NoError(t, repo.RecordSuccess(ctx, "d-mark-won", 1, 200, time.Now().UTC()))

		// A worker settled the delivery after the caller's status check;
		// the delivered outcome must stand.
		_, err := repo.MarkPending(ctx, "d-mark-won", 5)
		assert.ErrorIs(t, err, webhook.ErrAttemptConflict)

		d, err := repo.GetDelivery(ctx, "d-mark-won")
		require.NoError(t, err)
		assert.Equal(t, webhook.Delivered, d.Status)
		assert.Equal(t, 5, d.MaxAttempts)
	})

	t.Run("stats by status", func(t *testing.T) {
		require.NoError(t, repo.CreateWebhook(ctx, testWebhook("wh-stats", "tenant-s", []string{"member.created"})))
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-s1", "wh-stats", webhook.Pending)))
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-s2", "wh-stats", webhook.Pending)))
		require.NoError(t, repo.RecordSuccess(ctx, "d-s2", 1, 200, time.Now().UTC()))

		stats, err := repo.CountByStatus(ctx, "wh-stats")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Total)
		assert.Equal(t, int64(1), stats.Pending)
		assert.Equal(t, int64(1), stats.Delivered)
	})

	t.Run("delete blocked by pending, cascades settled", func(t *testing.T) {
		require.NoError(t, repo.CreateWebhook(ctx, testWebhook("wh-del", "tenant-d", []string{"member.created"})))
		require.NoError(t, repo.CreateDelivery(ctx, testDelivery("d-del", "wh-del", webhook.Pending)))

		err := repo.DeleteWebhook(ctx, "wh-del")
		assert.ErrorIs(t, err, webhook.ErrDeliveriesPending)

		require.NoError(t, repo.RecordSuccess(ctx, "d-del", 1, 200, time.Now().UTC()))
		require.NoError(t, repo.DeleteWebhook(ctx, "wh-del"))

		_, err = repo.GetWebhook(ctx, "wh-del")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
		_, err = repo.GetDelivery(ctx, "d-del")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})
}
