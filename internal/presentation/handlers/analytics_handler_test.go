package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/analytics"
	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/testutil"
)

func setupAnalyticsHandlerTest() (chi.Router, *testutil.MockIndexerRepository) {
	indexer := testutil.NewMockIndexerRepository()
	logger := zap.NewNop()

	service := services.NewAnalyticsService(
		testutil.NewMockMarketRepository(),
		indexer,
		nil,
		nil,
		nil,
		config.AnalyticsConfig{HolderSample: 100, AlsoBoughtTop: 10, ShortTTL: time.Second, MediumTTL: time.Second, LongTTL: time.Second},
		logger,
	)
	handler := NewAnalyticsHandler(service, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, indexer
}

func TestAnalyticsHandler_Widgets(t *testing.T) {
	router, _ := setupAnalyticsHandlerTest()

	for _, widget := range []string{"holders", "holding-time", "also-bought", "velocity", "wallet-growth", "creator"} {
		t.Run(widget, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tokens/"+testutil.TokenAddress+"/analytics/"+widget, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if _, ok := response["data"]; !ok {
				t.Error("expected data field")
			}
		})
	}
}

func TestAnalyticsHandler_Velocity_Timeframe(t *testing.T) {
	router, indexer := setupAnalyticsHandlerTest()

	var since time.Time
	indexer.GetTradesFunc = func(ctx context.Context, token string, s time.Time) ([]entities.Trade, error) {
		since = s
		return nil, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/tokens/"+testutil.TokenAddress+"/analytics/velocity?timeframe=7d", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	var response analytics.Result[analytics.Velocity]
	json.NewDecoder(rec.Body).Decode(&response)

	if response.Data.Timeframe != analytics.Timeframe7d {
		t.Errorf("expected 7d timeframe, got %s", response.Data.Timeframe)
	}
	if window := time.Since(since); window < 6*24*time.Hour {
		t.Errorf("expected a seven day window, got %v", window)
	}
}

func TestAnalyticsHandler_DegradedStillOK(t *testing.T) {
	router, indexer := setupAnalyticsHandlerTest()
	indexer.GetHoldingsFunc = func(ctx context.Context, token string, limit int) ([]entities.Holding, error) {
		return nil, errors.New("indexer down")
	}

	req := httptest.NewRequest(http.MethodGet, "/tokens/"+testutil.TokenAddress+"/analytics/holders", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response analytics.Result[analytics.HolderStats]
	json.NewDecoder(rec.Body).Decode(&response)

	if !response.Degraded || response.Error != "failed to get holdings: indexer down" {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestAnalyticsHandler_InvalidAddress(t *testing.T) {
	router, indexer := setupAnalyticsHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/tokens/0x12/analytics/holders", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if len(indexer.Calls) != 0 {
		t.Error("expected no indexer calls")
	}
}
