package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// maxAccountsPerQuery bounds the fan-out of a multi-account trade query
const maxAccountsPerQuery = 20

// TradeHandler handles HTTP requests for swap history
type TradeHandler struct {
	service *services.TradeHistoryService
	logger  *zap.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(service *services.TradeHistoryService, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the trade routes
func (h *TradeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tokens/{address}/trades", h.GetTokenTrades)
	r.Get("/trades", h.GetAccountsTrades)
}

// GetTokenTrades handles GET /api/v1/tokens/{address}/trades
func (h *TradeHandler) GetTokenTrades(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	page := parsePage(r)
	filter := entities.DefaultTradeFilter()
	filter.Page = page.Page
	filter.Limit = page.Limit

	if v := strings.ToLower(r.URL.Query().Get("sort")); v == string(entities.SortAsc) {
		filter.Sort = entities.SortAsc
	}
	filter.Type = entities.ParseTradeType(strings.ToLower(r.URL.Query().Get("type")))

	response := h.service.GetTokenTrades(r.Context(), strings.ToLower(address), filter)
	respondJSON(w, http.StatusOK, response)
}

// GetAccountsTrades handles GET /api/v1/trades?accounts=0x..,0x..
func (h *TradeHandler) GetAccountsTrades(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("accounts")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "accounts is required")
		return
	}

	accounts := strings.Split(raw, ",")
	if len(accounts) > maxAccountsPerQuery {
		respondError(w, http.StatusBadRequest, "too many accounts")
		return
	}
	for _, a := range accounts {
		if !isValidAddress(strings.TrimSpace(a)) {
			respondError(w, http.StatusBadRequest, "Invalid address format")
			return
		}
	}

	response := h.service.GetAccountsTrades(r.Context(), accounts, parsePage(r))
	respondJSON(w, http.StatusOK, response)
}
