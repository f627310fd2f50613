package webhook_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymstack/webhook-engine/webhook"
)

func TestWebhookValidate(t *testing.T) {
	valid := webhook.Webhook{
		TenantID:   "tenant-1",
		URL:        "https://example.com/hook",
		EventTypes: []string{"member.created"},
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("missing tenant", func(t *testing.T) {
		wh := valid
		wh.TenantID = ""
		assert.ErrorIs(t, wh.Validate(), webhook.ErrInvalidInput)
	})

	t.Run("relative url", func(t *testing.T) {
		wh := valid
		wh.URL = "/hook"
		assert.ErrorIs(t, wh.Validate(), webhook.ErrInvalidInput)
	})

	t.Run("non-http scheme", func(t *testing.T) {
		wh := valid
		wh.URL = "ftp://example.com/hook"
		assert.ErrorIs(t, wh.Validate(), webhook.ErrInvalidInput)
	})

	t.Run("negative rate limit", func(t *testing.T) {
		wh := valid
		wh.RateLimit = -1
		assert.ErrorIs(t, wh.Validate(), webhook.ErrInvalidInput)
	})
}

func TestSubscribes(t *testing.T) {
	wh := webhook.Webhook{EventTypes: []string{"member.created", "invoice.paid"}}

	assert.True(t, wh.Subscribes("member.created"))
	assert.False(t, wh.Subscribes("member.updated"))
	// Exact matching only.
	assert.False(t, wh.Subscribes("member"))
	assert.False(t, wh.Subscribes("member.created.v2"))
}

func TestDeliveryStatus(t *testing.T) {
	t.Run("string round trip", func(t *testing.T) {
		for _, s := range []webhook.DeliveryStatus{webhook.Pending, webhook.Delivered, webhook.Retrying, webhook.Exhausted} {
			assert.Equal(t, s, webhook.NewDeliveryStatus(s.String()))
		}
	})

	t.Run("terminal and attemptable", func(t *testing.T) {
		assert.True(t, webhook.Pending.Attemptable())
		assert.True(t, webhook.Retrying.Attemptable())
		assert.False(t, webhook.Delivered.Attemptable())
		assert.False(t, webhook.Exhausted.Attemptable())

		assert.True(t, webhook.Delivered.IsTerminal())
		assert.True(t, webhook.Exhausted.IsTerminal())
		assert.False(t, webhook.Pending.IsTerminal())
		assert.False(t, webhook.Retrying.IsTerminal())
	})

	t.Run("validate rejects out of range", func(t *testing.T) {
		assert.Error(t, webhook.DeliveryStatus(0).Validate())
		assert.Error(t, webhook.DeliveryStatus(99).Validate())
		assert.NoError(t, webhook.Retrying.Validate())
	})
}

func TestEnvelopeBody(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := webhook.Delivery{
		ID:        "d-1",
		EventType: "invoice.paid",
		Payload:   json.RawMessage(`{"invoiceId":"inv-9"}`),
	}

	body, err := d.EnvelopeBody(now)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &env))
	assert.JSONEq(t, `"d-1"`, string(env["deliveryId"]))
	assert.JSONEq(t, `"invoice.paid"`, string(env["eventType"]))
	assert.JSONEq(t, `{"invoiceId":"inv-9"}`, string(env["data"]))

	// Deterministic for a fixed timestamp; the signed bytes are reproducible.
	again, err := d.EnvelopeBody(now)
	require.NoError(t, err)
	assert.Equal(t, body, again)
}

func TestPage(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := webhook.Page{}
		assert.Equal(t, 0, p.Offset())
		assert.Equal(t, 20, p.Limit())
	})

	t.Run("clamps per page", func(t *testing.T) {
		assert.Equal(t, 200, webhook.Page{PerPage: 1000}.Limit())
		assert.Equal(t, 20, webhook.Page{PerPage: -5}.Limit())
	})

	t.Run("offset", func(t *testing.T) {
		assert.Equal(t, 40, webhook.Page{Number: 3, PerPage: 20}.Offset())
		assert.Equal(t, 0, webhook.Page{Number: -1, PerPage: 20}.Offset())
	})
}
