package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gymstack/webhook-engine/webhook"
)

// deliveryResponse represents a delivery attempt in the API
type deliveryResponse struct {
	ID            string          `json:"id"`
	WebhookID     string          `json:"webhook_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	LastAttemptAt *time.Time      `json:"last_attempt_at"`
	NextRetryAt   *time.Time      `json:"next_retry_at"`
	ResponseCode  *int            `json:"response_code"`
	ResponseBody  string          `json:"response_body,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toDeliveryResponse(d webhook.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:            d.ID,
		WebhookID:     d.WebhookID,
		EventType:     d.EventType,
		Payload:       d.Payload,
		Status:        d.Status.String(),
		Attempts:      d.Attempts,
		MaxAttempts:   d.MaxAttempts,
		LastAttemptAt: d.LastAttemptAt,
		NextRetryAt:   d.NextRetryAt,
		ResponseCode:  d.ResponseCode,
		ResponseBody:  d.ResponseBody,
		CreatedAt:     d.CreatedAt,
	}
}

// getDeliveries handles GET /webhooks/{id}/deliveries
func getDeliveries(service webhook.DeliveryUseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "deliveries:read"); !ok {
			return
		}

		page := pageFrom(r)
		all, total, err := service.Deliveries(r.Context(), chi.URLParam(r, "id"), page)
		if err != nil {
			writeError(w, err)
			return
		}

		items := make([]deliveryResponse, 0, len(all))
		for _, d := range all {
			items = append(items, toDeliveryResponse(d))
		}
		writeJSON(w, http.StatusOK, listResponse[deliveryResponse]{
			Items:   items,
			Total:   total,
			Page:    page.Number,
			PerPage: page.Limit(),
		})
	})
}

// getDelivery handles GET /webhooks/{id}/deliveries/{deliveryID}
func getDelivery(service webhook.DeliveryUseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "deliveries:read"); !ok {
			return
		}

		d, err := service.Delivery(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "deliveryID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeliveryResponse(d))
	})
}

// retryDelivery handles POST /webhooks/{id}/deliveries/{deliveryID}/retry
func retryDelivery(service webhook.DeliveryUseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "deliveries:write"); !ok {
			return
		}

		d, err := service.Retry(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "deliveryID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeliveryResponse(d))
	})
}

// getStats handles GET /webhooks/{id}/stats
func getStats(service webhook.DeliveryUseCase, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "deliveries:read"); !ok {
			return
		}

		stats, err := service.StatsFor(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})
}

// testWebhook handles POST /webhooks/{id}/test
func testWebhook(dispatcher *webhook.Dispatcher, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r, authorize, "deliveries:write"); !ok {
			return
		}

		d, err := dispatcher.Test(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeliveryResponse(d))
	})
}
