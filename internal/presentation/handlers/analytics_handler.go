package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/analytics"
	"github.com/bimakw/nadfun-gateway/internal/application/services"
)

// AnalyticsHandler serves the token dashboard widgets
type AnalyticsHandler struct {
	service *services.AnalyticsService
	logger  *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *services.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tokens/{address}/analytics", func(r chi.Router) {
		r.Get("/holders", h.widget(func(r *http.Request, token string) interface{} {
			return h.service.HolderStats(r.Context(), token)
		}))
		r.Get("/holding-time", h.widget(func(r *http.Request, token string) interface{} {
			return h.service.HoldingTime(r.Context(), token)
		}))
		r.Get("/also-bought", h.widget(func(r *http.Request, token string) interface{} {
			return h.service.AlsoBought(r.Context(), token)
		}))
		r.Get("/velocity", h.widget(func(r *http.Request, token string) interface{} {
			return h.service.Velocity(r.Context(), token, timeframe(r))
		}))
		r.Get("/wallet-growth", h.widget(func(r *http.Request, token string) interface{} {
			return h.service.WalletGrowth(r.Context(), token, timeframe(r))
		}))
		r.Get("/creator", h.widget(func(r *http.Request, token string) interface{} {
			return h.service.CreatorInsights(r.Context(), token)
		}))
	})
}

// widget validates the token address and writes the computed widget.
// Degraded results are still served with 200.
func (h *AnalyticsHandler) widget(compute func(r *http.Request, token string) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		if !isValidAddress(address) {
			respondError(w, http.StatusBadRequest, "Invalid address format")
			return
		}

		respondJSON(w, http.StatusOK, compute(r, strings.ToLower(address)))
	}
}

func timeframe(r *http.Request) analytics.Timeframe {
	return analytics.ParseTimeframe(strings.ToLower(r.URL.Query().Get("timeframe")))
}
