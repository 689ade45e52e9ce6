package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// FeedStatsSource reports the state of the real-time feed
type FeedStatsSource interface {
	Stats() entities.FeedStats
}

// FeedHandler serves the websocket fan-out and feed statistics
type FeedHandler struct {
	stats FeedStatsSource
	ws    http.Handler
}

// NewFeedHandler creates a new feed handler. Either argument may be nil when the feed is disabled.
func NewFeedHandler(stats FeedStatsSource, ws http.Handler) *FeedHandler {
	return &FeedHandler{
		stats: stats,
		ws:    ws,
	}
}

// RegisterRoutes registers the feed stats route
func (h *FeedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/feed/stats", h.Stats)
}

// Stats handles GET /api/v1/feed/stats
func (h *FeedHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respondError(w, http.StatusServiceUnavailable, "feed disabled")
		return
	}
	respondJSON(w, http.StatusOK, h.stats.Stats())
}

// Stream handles GET /ws/feed
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.ws == nil {
		respondError(w, http.StatusServiceUnavailable, "feed disabled")
		return
	}
	h.ws.ServeHTTP(w, r)
}
