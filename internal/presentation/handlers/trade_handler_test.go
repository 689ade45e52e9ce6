package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/testutil"
)

func setupTradeHandlerTest() (chi.Router, *testutil.MockMarketRepository) {
	marketRepo := testutil.NewMockMarketRepository()
	logger := zap.NewNop()

	service := services.NewTradeHistoryService(marketRepo, nil, 5*time.Second, 2, logger)
	handler := NewTradeHandler(service, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, marketRepo
}

func TestTradeHandler_GetTokenTrades_Filters(t *testing.T) {
	router, marketRepo := setupTradeHandlerTest()

	trades := testutil.CreateMultipleTrades(3)
	trades[0].IsBuy = false
	marketRepo.SetTokenTrades(testutil.TokenAddress, trades...)

	req := httptest.NewRequest(http.MethodGet, "/tokens/"+testutil.TokenAddress+"/trades?type=buy&sort=asc", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.TradeListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Data) != 2 {
		t.Fatalf("expected 2 buys, got %d", len(response.Data))
	}
	if response.Data[0].Timestamp > response.Data[1].Timestamp {
		t.Error("expected ascending order")
	}
}

func TestTradeHandler_GetTokenTrades_InvalidAddress(t *testing.T) {
	router, _ := setupTradeHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/tokens/0xabc/trades", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestTradeHandler_GetAccountsTrades(t *testing.T) {
	router, marketRepo := setupTradeHandlerTest()

	marketRepo.SetAccountTrades(testutil.AliceAddress, testutil.CreateMultipleTrades(2, testutil.TradeWithTrader(testutil.AliceAddress))...)
	marketRepo.SetAccountTrades(testutil.BobAddress, testutil.CreateMultipleTrades(1, testutil.TradeWithTrader(testutil.BobAddress))...)

	req := httptest.NewRequest(http.MethodGet, "/trades?accounts="+testutil.AliceAddress+","+testutil.BobAddress, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	var response services.TradeListResponse
	json.NewDecoder(rec.Body).Decode(&response)

	if len(response.Data) != 3 {
		t.Errorf("expected 3 merged trades, got %d", len(response.Data))
	}
}

func TestTradeHandler_GetAccountsTrades_Validation(t *testing.T) {
	router, marketRepo := setupTradeHandlerTest()

	many := make([]string, maxAccountsPerQuery+1)
	for i := range many {
		many[i] = testutil.AliceAddress
	}

	tests := []struct {
		name  string
		query string
	}{
		{"missing accounts", ""},
		{"invalid account", "?accounts=" + testutil.AliceAddress + ",0x12"},
		{"too many accounts", "?accounts=" + strings.Join(many, ",")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trades"+tt.query, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}

	if len(marketRepo.Calls) != 0 {
		t.Errorf("expected no upstream calls, got %d", len(marketRepo.Calls))
	}
}
