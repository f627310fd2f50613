package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gymstack/webhook-engine/webhook"
)

/* HTTP layer DTOs for the operator API
 * Separate from domain entities to avoid leaking internal structure;
 * in particular, the secret field only appears on create and rotate.
 */

// createWebhookRequest represents the subscription creation payload
type createWebhookRequest struct {
	URL        string   `json:"url"`
	EventTypes []string `json:"event_types"`
	RateLimit  int      `json:"rate_limit"`
}

// updateWebhookRequest carries a partial update; nil fields are unchanged
type updateWebhookRequest struct {
	URL        *string  `json:"url"`
	EventTypes []string `json:"event_types"`
}

// webhookResponse represents a subscription in the API
type webhookResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"event_types"`
	RateLimit  int       `json:"rate_limit"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// Secret is present exactly once, on create and rotate responses.
	Secret string `json:"secret,omitempty"`
}

// listResponse wraps a page of results with the total count
type listResponse[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func toWebhookResponse(wh webhook.Webhook, includeSecret bool) webhookResponse {
	resp := webhookResponse{
		ID:         wh.ID,
		TenantID:   wh.TenantID,
		URL:        wh.URL,
		EventTypes: wh.EventTypes,
		RateLimit:  wh.RateLimit,
		Active:     wh.Active,
		CreatedAt:  wh.CreatedAt,
		UpdatedAt:  wh.UpdatedAt,
	}
	if includeSecret {
		resp.Secret = wh.Secret
	}
	return resp
}

// postWebhook handles POST /webhooks
func postWebhook(service webhook.UseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r, authorize, "webhooks:write")
		if !ok {
			return
		}

		var req createWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		wh, err := service.Create(r.Context(), tenantID, req.URL, req.EventTypes, req.RateLimit)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWebhookResponse(wh, true))
	})
}

// getWebhooks handles GET /webhooks
func getWebhooks(service webhook.UseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r, authorize, "webhooks:read")
		if !ok {
			return
		}

		page := pageFrom(r)
		all, total, err := service.List(r.Context(), tenantID, page)
		if err != nil {
			writeError(w, err)
			return
		}

		items := make([]webhookResponse, 0, len(all))
		for _, wh := range all {
			items = append(items, toWebhookResponse(wh, false))
		}
		writeJSON(w, http.StatusOK, listResponse[webhookResponse]{
			Items:   items,
			Total:   total,
			Page:    page.Number,
			PerPage: page.Limit(),
		})
	})
}

// getWebhook handles GET /webhooks/{id}
func getWebhook(service webhook.UseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "webhooks:read"); !ok {
			return
		}

		wh, err := service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponse(wh, false))
	})
}

// putWebhook handles PUT /webhooks/{id}
func putWebhook(service webhook.UseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "webhooks:write"); !ok {
			return
		}

		var req updateWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		wh, err := service.Update(r.Context(), chi.URLParam(r, "id"), req.URL, req.EventTypes)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponse(wh, false))
	})
}

// deleteWebhook handles DELETE /webhooks/{id}
func deleteWebhook(service webhook.UseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "webhooks:write"); !ok {
			return
		}

		if err := service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// activateWebhook handles POST /webhooks/{id}/activate and .../deactivate
func activateWebhook(service webhook.UseCase, authorize Authorizer, active bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "webhooks:write"); !ok {
			return
		}

		var wh webhook.Webhook
		var err error
		if active {
			wh, err = service.Activate(r.Context(), chi.URLParam(r, "id"))
		} else {
			wh, err = service.Deactivate(r.Context(), chi.URLParam(r, "id"))
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponse(wh, false))
	})
}

// regenerateSecret handles POST /webhooks/{id}/regenerate-secret
func regenerateSecret(service webhook.UseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "webhooks:write"); !ok {
			return
		}

		wh, err := service.RotateSecret(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponse(wh, true))
	})
}

/* tenantFrom authorizes the request and extracts the explicit tenant
 * scope. Tenant id travels in a header, never in ambient request context.
 */
func tenantFrom(w http.ResponseWriter, r *http.Request, authorize Authorizer, action string) (string, bool) {
	tenantID := r.Header.Get("X-Tenant-ID")
	if err := authorize(r, tenantID, action); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return "", false
	}
	if tenantID == "" {
		http.Error(w, "X-Tenant-ID header is required", http.StatusBadRequest)
		return "", false
	}
	return tenantID, true
}

func pageFrom(r *http.Request) webhook.Page {
	page := webhook.Page{Number: 1, PerPage: 20}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		page.PerPage = v
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

/* writeError maps the domain error taxonomy onto HTTP statuses. The
 * webhook/delivery mismatch deliberately reads differently from a plain
 * not-found so operators can tell a wrong id from a wrong pairing.
 */
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhook.ErrWebhookMismatch):
		http.Error(w, "delivery does not belong to this webhook", http.StatusNotFound)
	case errors.Is(err, webhook.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, webhook.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, webhook.ErrDeliveriesPending), errors.Is(err, webhook.ErrAttemptConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
