package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "keygate/internal/api/context"
	"keygate/internal/api/handlers"
	"keygate/internal/api/middleware"
	"keygate/internal/platform/config"
)

type Dependencies struct {
	WebhookHandler  *handlers.WebhookHandler
	DeliveryHandler *handlers.DeliveryHandler
	StatsHandler    *handlers.StatsHandler
	HealthHandler   *handlers.HealthHandler
	MetricsHandler  *handlers.MetricsHandler
	AdminAuth       *middleware.AdminAuth
	RateLimiter     *middleware.RateLimiter
	RateLimits      config.RateLimitConfig
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	webhookLimit := deps.RateLimiter.Limit("webhook", deps.RateLimits.WebhookPerMinute)
	adminLimit := deps.RateLimiter.Limit("admin", deps.RateLimits.AdminPerMinute)
	auth := deps.AdminAuth

	// Ingest endpoint the license server delivers to
	router.POST("/webhooks/keygate", chain(deps.WebhookHandler.Receive, webhookLimit))

	// Operational endpoints
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Admin read API
	router.GET("/api/v1/deliveries",
		chain(deps.DeliveryHandler.List, auth.Handle, adminLimit))
	router.GET("/api/v1/deliveries/:delivery_id",
		chain(deps.DeliveryHandler.Get, auth.Handle, adminLimit))
	router.GET("/api/v1/stats/daily",
		chain(deps.StatsHandler.Daily, auth.Handle, adminLimit))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
