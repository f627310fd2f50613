package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/gymstack/webhook-engine/eventtypes"
	"github.com/gymstack/webhook-engine/webhook"
)

// Handlers wires the operator API routes
func Handlers(
	service webhook.UseCase,
	deliveries webhook.DeliveryUseCase,
	dispatcher *webhook.Dispatcher,
	catalog *eventtypes.Catalog,
	authorize Authorizer,
	metricsHandler http.Handler,
) *chi.Mux {
	logger := httplog.NewLogger("webhook-engine", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/webhooks", func(r chi.Router) {
		// The fixed path must be registered before the {id} routes.
		r.Method(http.MethodGet, "/event-types", getEventTypes(catalog, authorize))

		r.Method(http.MethodPost, "/", postWebhook(service, authorize))
		r.Method(http.MethodGet, "/", getWebhooks(service, authorize))
		r.Method(http.MethodGet, "/{id}", getWebhook(service, authorize))
		r.Method(http.MethodPut, "/{id}", putWebhook(service, authorize))
		r.Method(http.MethodDelete, "/{id}", deleteWebhook(service, authorize))
		r.Method(http.MethodPost, "/{id}/activate", activateWebhook(service, authorize, true))
		r.Method(http.MethodPost, "/{id}/deactivate", activateWebhook(service, authorize, false))
		r.Method(http.MethodPost, "/{id}/regenerate-secret", regenerateSecret(service, authorize))
		r.Method(http.MethodPost, "/{id}/test", testWebhook(dispatcher, authorize))
		r.Method(http.MethodGet, "/{id}/deliveries", getDeliveries(deliveries, authorize))
		r.Method(http.MethodGet, "/{id}/deliveries/{deliveryID}", getDelivery(deliveries, authorize))
		r.Method(http.MethodPost, "/{id}/deliveries/{deliveryID}/retry", retryDelivery(deliveries, authorize))
		r.Method(http.MethodGet, "/{id}/stats", getStats(deliveries, authorize))
	})

	return r
}

// getEventTypes handles GET /webhooks/event-types
func getEventTypes(catalog *eventtypes.Catalog, authorize Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := authorize(r, r.Header.Get("X-Tenant-ID"), "webhooks:read"); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, catalog.List())
	})
}
