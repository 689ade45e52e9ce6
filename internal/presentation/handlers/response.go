package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// isValidAddress checks for 0x followed by 40 hex characters
func isValidAddress(addr string) bool {
	return len(addr) == 42 && strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// parsePage reads page and limit query parameters; invalid values fall back to defaults
func parsePage(r *http.Request) entities.PageQuery {
	page := entities.DefaultPageQuery()

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page.Page = p
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			page.Limit = l
		}
	}

	return page.Normalize()
}
