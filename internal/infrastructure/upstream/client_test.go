package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

const testToken = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

func newTestClient(serverURL string) *Client {
	return NewClient(config.UpstreamConfig{
		BaseURL:      serverURL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
		RateLimitRPS: 1000,
		RateBurst:    1000,
	}, zap.NewNop())
}

func TestClient_GetToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathToken+testToken {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_info":{"token_address":"0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD","name":"Moon","symbol":"MOON","creator":"0x1111111111111111111111111111111111111111","total_supply":"1000000000000000000000000000","market_cap":"1500000000000000000","created_at":1717243200,"is_listing":true}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	token, err := client.GetToken(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token.Address != testToken {
		t.Errorf("expected lower-cased address %s, got %s", testToken, token.Address)
	}
	if token.Symbol != "MOON" {
		t.Errorf("expected symbol MOON, got %s", token.Symbol)
	}
	if !token.IsListed {
		t.Error("expected token to be listed")
	}
	if token.CreatedAt.Unix() != 1717243200 {
		t.Errorf("unexpected created_at %v", token.CreatedAt)
	}
}

func TestClient_ListTokens_Paths(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"order_type":"market_cap","order_token":[{"token_address":"` + testToken + `","symbol":"A"}],"total_count":1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	page, err := client.ListTokens(context.Background(), entities.TokenListMarketCap, entities.PageQuery{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != PathMarketCap {
		t.Errorf("expected path %s, got %s", PathMarketCap, gotPath)
	}
	if gotQuery != "limit=5&page=2" {
		t.Errorf("unexpected query %s", gotQuery)
	}
	if page.TotalCount != 1 || len(page.Tokens) != 1 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"swaps":[{"account":"0xAAAA","is_buy":true,"token_amount":"10","native_amount":"20","created_at":100,"transaction_hash":"0x01"}],"total_count":1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	page, err := client.GetTokenTrades(context.Background(), testToken, entities.DefaultPageQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if page.TotalCount != 1 {
		t.Errorf("expected total count 1, got %d", page.TotalCount)
	}
	trades := page.Trades
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].TokenAddress != testToken {
		t.Errorf("expected token address to default to %s, got %s", testToken, trades[0].TokenAddress)
	}
	if trades[0].Trader != "0xaaaa" {
		t.Errorf("expected lower-cased trader, got %s", trades[0].Trader)
	}
	if trades[0].NativeAmount.Int64() != 20 {
		t.Errorf("expected native amount 20, got %s", trades[0].NativeAmount)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetToken(context.Background(), testToken)
	if err == nil {
		t.Fatal("expected error")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestClient_Forward(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1m" {
			t.Errorf("expected interval query to be forwarded, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"raw":true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Forward(context.Background(), PathChart+testToken, url.Values{"interval": {"1m"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected upstream status to pass through, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"raw":true}` {
		t.Errorf("unexpected body %s", resp.Body)
	}
	if resp.ContentType != "application/json" {
		t.Errorf("unexpected content type %s", resp.ContentType)
	}
}
