package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// TokenHandler handles HTTP requests for token listings and details
type TokenHandler struct {
	service *services.TokenService
	logger  *zap.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(service *services.TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the token routes
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tokens", h.ListTokens)
	r.Get("/tokens/search", h.Search)
	r.Get("/tokens/{address}", h.GetByAddress)
	r.Get("/accounts/{address}/tokens", h.GetAccountTokens)
}

// ListTokens handles GET /api/v1/tokens?order=creation_time|market_cap
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := parsePage(r)

	var response *services.TokenListResponse
	switch strings.ToLower(r.URL.Query().Get("order")) {
	case "", "creation_time", string(entities.TokenListRecent):
		response = h.service.ListRecent(ctx, page)
	case string(entities.TokenListMarketCap):
		response = h.service.ListByMarketCap(ctx, page)
	default:
		respondError(w, http.StatusBadRequest, "order must be creation_time or market_cap")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Search handles GET /api/v1/tokens/search?q=
func (h *TokenHandler) Search(w http.ResponseWriter, r *http.Request) {
	response := h.service.Search(r.Context(), r.URL.Query().Get("q"), parsePage(r))
	respondJSON(w, http.StatusOK, response)
}

// GetByAddress handles GET /api/v1/tokens/{address}
func (h *TokenHandler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	address = strings.ToLower(address)

	response, err := h.service.GetToken(ctx, address)
	if err != nil {
		h.logger.Error("Failed to get token", zap.Error(err), zap.String("address", address))
		if errors.Is(err, services.ErrTokenUnavailable) {
			respondError(w, http.StatusBadGateway, "Token unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get token")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetAccountTokens handles GET /api/v1/accounts/{address}/tokens
func (h *TokenHandler) GetAccountTokens(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	response := h.service.ListAccountTokens(r.Context(), strings.ToLower(address), parsePage(r))
	respondJSON(w, http.StatusOK, response)
}
