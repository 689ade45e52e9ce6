package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/infrastructure/upstream"
)

// Forwarder performs raw upstream requests
type Forwarder interface {
	Forward(ctx context.Context, path string, query url.Values) (*upstream.Response, error)
}

// ProxyHandler passes browser requests through to the upstream API
type ProxyHandler struct {
	upstream Forwarder
	logger   *zap.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(upstream Forwarder, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		upstream: upstream,
		logger:   logger,
	}
}

// RegisterRoutes registers the proxy routes
func (h *ProxyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/token/{address}", h.Token)
	r.Get("/chart/{address}", h.Chart)
	r.Get("/tokens/creation-time", h.CreationTime)
}

// Token handles GET /api/token/{address}
func (h *ProxyHandler) Token(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	h.forward(w, r, upstream.PathToken+address)
}

// Chart handles GET /api/chart/{address}
func (h *ProxyHandler) Chart(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	h.forward(w, r, upstream.PathChart+address)
}

// CreationTime handles GET /api/tokens/creation-time
func (h *ProxyHandler) CreationTime(w http.ResponseWriter, r *http.Request) {
	resp, err := h.upstream.Forward(r.Context(), upstream.PathCreationTime, r.URL.Query())
	if err != nil || resp.StatusCode >= http.StatusBadRequest {
		if err != nil {
			h.logger.Warn("Creation-time listing unavailable", zap.Error(err))
		} else {
			h.logger.Warn("Creation-time listing unavailable", zap.Int("status", resp.StatusCode))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(upstream.CreationTimeFallback))
		return
	}

	writeUpstream(w, resp)
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, path string) {
	resp, err := h.upstream.Forward(r.Context(), path, r.URL.Query())
	if err != nil {
		h.logger.Error("Upstream request failed", zap.String("path", path), zap.Error(err))
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeUpstream(w, resp)
}

// writeUpstream copies the upstream status and body verbatim
func writeUpstream(w http.ResponseWriter, resp *upstream.Response) {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
