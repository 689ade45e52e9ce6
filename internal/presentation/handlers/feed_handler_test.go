package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

type stubFeedStats struct {
	stats entities.FeedStats
}

func (s stubFeedStats) Stats() entities.FeedStats {
	return s.stats
}

func TestFeedHandler_Stats(t *testing.T) {
	handler := NewFeedHandler(stubFeedStats{stats: entities.FeedStats{
		State:           "connected",
		LastBlock:       42,
		BlocksPerSecond: 0.5,
		LogsByKind:      map[entities.LogKind]int64{entities.LogTransfer: 3},
	}}, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/feed/stats", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response entities.FeedStats
	json.NewDecoder(rec.Body).Decode(&response)

	if response.State != "connected" || response.LastBlock != 42 {
		t.Errorf("unexpected stats: %+v", response)
	}
	if response.LogsByKind[entities.LogTransfer] != 3 {
		t.Errorf("expected 3 transfer logs, got %d", response.LogsByKind[entities.LogTransfer])
	}
}

func TestFeedHandler_Disabled(t *testing.T) {
	handler := NewFeedHandler(nil, nil)

	for name, serve := range map[string]http.HandlerFunc{"stats": handler.Stats, "stream": handler.Stream} {
		rec := httptest.NewRecorder()
		serve(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", name, rec.Code)
		}
	}
}

func TestFeedHandler_Stream_Delegates(t *testing.T) {
	served := false
	handler := NewFeedHandler(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
	}))

	handler.Stream(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws/feed", nil))

	if !served {
		t.Error("expected websocket handler to be called")
	}
}
