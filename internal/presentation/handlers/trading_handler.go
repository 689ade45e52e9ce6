package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/format"
)

// TradingHandler exposes read-only trading endpoints and the trade journal.
// Submitting trades is left to the trader CLI, which owns the signing key.
type TradingHandler struct {
	service *services.TradingService
	logger  *zap.Logger
}

// NewTradingHandler creates a new trading handler
func NewTradingHandler(service *services.TradingService, logger *zap.Logger) *TradingHandler {
	return &TradingHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the trading routes
func (h *TradingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/trading/{address}/status", h.Status)
	r.Get("/trading/{address}/quote", h.Quote)
	r.Get("/accounts/{address}/journal", h.Journal)
}

// Status handles GET /api/v1/trading/{address}/status
func (h *TradingHandler) Status(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	status, err := h.service.Status(r.Context(), address)
	if err != nil {
		h.fail(w, "Failed to read trading status", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token_address": status.TokenAddress,
		"is_listed":     status.IsListed,
		"is_locked":     status.IsLocked,
		"can_trade":     status.CanTrade(),
	})
}

// Quote handles GET /api/v1/trading/{address}/quote?direction=buy&amount=1.5
func (h *TradingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	direction := entities.TradeDirection(strings.ToLower(r.URL.Query().Get("direction")))
	amount, err := format.ParseUnits(r.URL.Query().Get("amount"), format.NativeDecimals)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	quote, err := h.service.QuoteWithSlippage(r.Context(), address, direction, amount)
	if err != nil {
		h.fail(w, "Failed to quote trade", err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Journal handles GET /api/v1/accounts/{address}/journal
func (h *TradingHandler) Journal(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	entries, err := h.service.Journal(r.Context(), address, limit)
	if err != nil {
		h.fail(w, "Failed to list journal", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  entries,
		"total": len(entries),
	})
}

func (h *TradingHandler) fail(w http.ResponseWriter, message string, err error) {
	status := statusForTradeError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	respondError(w, status, err.Error())
}

// statusForTradeError maps validation errors to 4xx and chain failures to 502
func statusForTradeError(err error) int {
	switch {
	case errors.Is(err, services.ErrTokenRequired),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrTradingDisabled),
		errors.Is(err, services.ErrWalletNotConnected):
		return http.StatusConflict
	case errors.Is(err, services.ErrJournalDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
