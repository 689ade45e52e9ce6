package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
)

// Ensure Client implements MarketRepository
var _ repositories.MarketRepository = (*Client)(nil)

const maxBodyBytes = 10 << 20

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of requests sent to the upstream API",
		},
		[]string{"endpoint", "status"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)
)

// StatusError is returned when the upstream answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Response is a raw upstream response, used by the pass-through proxy
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client talks to the upstream REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	config     config.UpstreamConfig
	logger     *zap.Logger
}

// NewClient creates a new upstream API client
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst),
		config:     cfg,
		logger:     logger,
	}
}

// Forward performs a single GET against the upstream and returns the response verbatim.
// Non-2xx statuses are not errors here; only transport failures are.
func (c *Client) Forward(ctx context.Context, path string, query url.Values) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "proxy", path, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// GetToken retrieves token metadata by address
func (c *Client) GetToken(ctx context.Context, address string) (*entities.Token, error) {
	var resp tokenResponse
	if err := c.getJSON(ctx, "token", PathToken+address, nil, &resp); err != nil {
		return nil, err
	}
	token := resp.TokenInfo.toEntity()
	if token.Address == "" {
		token.Address = strings.ToLower(address)
	}
	return &token, nil
}

// ListTokens retrieves a page of tokens ordered by creation time or market cap
func (c *Client) ListTokens(ctx context.Context, kind entities.TokenListKind, page entities.PageQuery) (*entities.TokenPage, error) {
	path := PathCreationTime
	if kind == entities.TokenListMarketCap {
		path = PathMarketCap
	}

	var resp orderResponse
	if err := c.getJSON(ctx, string(kind), path, pageValues(page), &resp); err != nil {
		return nil, err
	}

	return &entities.TokenPage{
		Tokens:     tokensToEntities(resp.OrderToken),
		TotalCount: resp.TotalCount,
	}, nil
}

// SearchTokens retrieves tokens matching a free-text query
func (c *Client) SearchTokens(ctx context.Context, query string, page entities.PageQuery) (*entities.TokenPage, error) {
	values := pageValues(page)
	values.Set("keyword", query)

	var resp searchResponse
	if err := c.getJSON(ctx, "search", PathSearch, values, &resp); err != nil {
		return nil, err
	}

	return &entities.TokenPage{
		Tokens:     tokensToEntities(resp.Tokens),
		TotalCount: resp.TotalCount,
	}, nil
}

// GetAccountTokens retrieves tokens held by an account
func (c *Client) GetAccountTokens(ctx context.Context, account string, page entities.PageQuery) (*entities.TokenPage, error) {
	var resp positionResponse
	if err := c.getJSON(ctx, "account_positions", PathAccountPos+account, pageValues(page), &resp); err != nil {
		return nil, err
	}

	tokens := make([]entities.Token, len(resp.Positions))
	for i, p := range resp.Positions {
		tokens[i] = p.Token.toEntity()
	}

	return &entities.TokenPage{
		Tokens:     tokens,
		TotalCount: resp.TotalCount,
	}, nil
}

// GetTokenTrades retrieves a page of swap history for a token
func (c *Client) GetTokenTrades(ctx context.Context, token string, page entities.PageQuery) (*entities.TradePage, error) {
	var resp swapResponse
	if err := c.getJSON(ctx, "token_swaps", PathTokenSwaps+token, pageValues(page), &resp); err != nil {
		return nil, err
	}
	return &entities.TradePage{
		Trades:     c.swapsToTrades(resp.Swaps, token),
		TotalCount: resp.TotalCount,
	}, nil
}

// GetAccountTrades retrieves a page of swap history for an account
func (c *Client) GetAccountTrades(ctx context.Context, account string, page entities.PageQuery) (*entities.TradePage, error) {
	var resp swapResponse
	if err := c.getJSON(ctx, "account_swaps", PathAccountSwaps+account, pageValues(page), &resp); err != nil {
		return nil, err
	}

	trades := make([]entities.Trade, len(resp.Swaps))
	for i, s := range resp.Swaps {
		trades[i] = s.toEntity()
		if trades[i].Trader == "" {
			trades[i].Trader = strings.ToLower(account)
		}
	}
	return &entities.TradePage{Trades: trades, TotalCount: resp.TotalCount}, nil
}

func (c *Client) swapsToTrades(swaps []swapInfo, token string) []entities.Trade {
	trades := make([]entities.Trade, len(swaps))
	for i, s := range swaps {
		trades[i] = s.toEntity()
		if trades[i].TokenAddress == "" {
			trades[i].TokenAddress = strings.ToLower(token)
		}
	}
	return trades
}

// getJSON fetches and decodes a JSON document, retrying transport errors and 5xx responses
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, dest interface{}) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.config.RetryDelay

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.config.MaxRetries)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.do(ctx, endpoint, path, query)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("failed to read upstream body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode upstream response: %w", err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Upstream request failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return fmt.Errorf("upstream %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, path string, query url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	return resp, nil
}

func pageValues(page entities.PageQuery) url.Values {
	page = page.Normalize()
	values := url.Values{}
	values.Set("page", strconv.Itoa(page.Page))
	values.Set("limit", strconv.Itoa(page.Limit))
	return values
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
