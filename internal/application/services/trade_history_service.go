package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/format"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
)

// TradeHistoryService provides business logic for swap history queries
type TradeHistoryService struct {
	marketRepo repositories.MarketRepository
	cache      *cache.RedisCache
	ttl        time.Duration
	workers    int
	logger     *zap.Logger
	now        func() time.Time
}

// NewTradeHistoryService creates a new trade history service.
// workers bounds the number of concurrent upstream requests for multi-account queries.
func NewTradeHistoryService(
	marketRepo repositories.MarketRepository,
	cache *cache.RedisCache,
	ttl time.Duration,
	workers int,
	logger *zap.Logger,
) *TradeHistoryService {
	if workers <= 0 {
		workers = 4
	}
	return &TradeHistoryService{
		marketRepo: marketRepo,
		cache:      cache,
		ttl:        ttl,
		workers:    workers,
		logger:     logger,
		now:        time.Now,
	}
}

// TradeDTO is the API representation of a trade
type TradeDTO struct {
	Trader       string `json:"trader"`
	TokenAddress string `json:"token_address"`
	Type         string `json:"type"`
	TokenAmount  string `json:"token_amount"`
	NativeAmount string `json:"native_amount"`
	Timestamp    int64  `json:"timestamp"`
	TimeAgo      string `json:"time_ago"`
	TxHash       string `json:"tx_hash"`
}

// TradeListResponse is the API response for trade history queries
type TradeListResponse struct {
	Data       []TradeDTO         `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
	Degraded   bool               `json:"degraded"`
	Error      string             `json:"error,omitempty"`
}

// Type-filtered and ascending queries walk upstream history newest first in
// pages of tradeScanPageSize, at most tradeScanMaxPages of them.
const (
	tradeScanPageSize = 100
	tradeScanMaxPages = 10
)

// errTradeScanTruncated flags a filtered query over more history than one scan reads
var errTradeScanTruncated = errors.New("trade history exceeds the scan limit; results cover the newest swaps only")

// GetTokenTrades retrieves swap history for a token, filtered by type and sorted by time.
// The type filter and sort apply before pagination, and Total counts matching trades.
func (s *TradeHistoryService) GetTokenTrades(ctx context.Context, token string, filter entities.TradeFilter) *TradeListResponse {
	token = strings.ToLower(token)
	page := entities.PageQuery{Page: filter.Page, Limit: filter.Limit}.Normalize()
	if filter.Sort != entities.SortAsc {
		filter.Sort = entities.SortDesc
	}
	if filter.Type == "" {
		filter.Type = entities.TradeTypeAll
	}

	// Generate cache key
	cacheKey := cache.Key("trades", token, strconv.Itoa(page.Page), strconv.Itoa(page.Limit), string(filter.Sort), string(filter.Type))

	// Try cache first
	var cached TradeListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			s.refreshAges(cached.Data)
			return &cached
		}
	}

	var (
		response *TradeListResponse
		err      error
	)
	if filter.Type == entities.TradeTypeAll && filter.Sort == entities.SortDesc {
		response, err = s.tokenTradesPage(ctx, token, page)
	} else {
		response, err = s.tokenTradesScan(ctx, token, filter, page)
	}
	if err != nil {
		s.logger.Warn("Trade history unavailable", zap.String("token", token), zap.Error(err))
		return degradedTrades(page, err)
	}

	if !response.Degraded {
		s.store(ctx, cacheKey, response)
	}
	return response
}

// tokenTradesPage maps one upstream page, which already holds every type newest first
func (s *TradeHistoryService) tokenTradesPage(ctx context.Context, token string, page entities.PageQuery) (*TradeListResponse, error) {
	result, err := s.marketRepo.GetTokenTrades(ctx, token, page)
	if err != nil {
		return nil, err
	}

	trades := result.Trades
	SortTrades(trades, entities.SortDesc)

	total := result.TotalCount
	if seen := (page.Page-1)*page.Limit + len(trades); total < seen {
		total = seen
	}

	return &TradeListResponse{
		Data:       s.tradesToDTOs(trades),
		Pagination: PaginationResponse{Total: total, Page: page.Page, Limit: page.Limit},
	}, nil
}

// tokenTradesScan reads history until it is exhausted, keeping trades that match the filter,
// then sorts and cuts the requested page. A scan that stops at the page limit is degraded.
func (s *TradeHistoryService) tokenTradesScan(ctx context.Context, token string, filter entities.TradeFilter, page entities.PageQuery) (*TradeListResponse, error) {
	var matched []entities.Trade
	exhausted := false

	for p := 1; p <= tradeScanMaxPages; p++ {
		result, err := s.marketRepo.GetTokenTrades(ctx, token, entities.PageQuery{Page: p, Limit: tradeScanPageSize})
		if err != nil {
			return nil, err
		}
		for _, t := range result.Trades {
			if filter.Type.Matches(t) {
				matched = append(matched, t)
			}
		}
		if len(result.Trades) < tradeScanPageSize || (result.TotalCount > 0 && p*tradeScanPageSize >= result.TotalCount) {
			exhausted = true
			break
		}
	}

	SortTrades(matched, filter.Sort)
	start := min((page.Page-1)*page.Limit, len(matched))
	end := min(start+page.Limit, len(matched))

	response := &TradeListResponse{
		Data:       s.tradesToDTOs(matched[start:end]),
		Pagination: PaginationResponse{Total: len(matched), Page: page.Page, Limit: page.Limit},
	}
	if !exhausted {
		s.logger.Warn("Trade history scan truncated",
			zap.String("token", token),
			zap.Int("pages", tradeScanMaxPages),
		)
		response.Degraded = true
		response.Error = errTradeScanTruncated.Error()
	}
	return response, nil
}

// GetAccountsTrades retrieves swap history for several accounts in parallel,
// merged and deduplicated by (trader, timestamp), newest first.
// Accounts that fail are skipped and flag the response as degraded.
func (s *TradeHistoryService) GetAccountsTrades(ctx context.Context, accounts []string, page entities.PageQuery) *TradeListResponse {
	page = page.Normalize()
	accounts = normalizeAccounts(accounts)
	if len(accounts) == 0 {
		return &TradeListResponse{
			Data:       []TradeDTO{},
			Pagination: PaginationResponse{Page: page.Page, Limit: page.Limit},
		}
	}

	// Generate cache key
	cacheKey := s.accountsCacheKey(accounts, page)

	// Try cache first
	var cached TradeListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			s.refreshAges(cached.Data)
			return &cached
		}
	}

	var (
		mu       sync.Mutex
		lists    = make([][]entities.Trade, 0, len(accounts))
		fetched  int
		total    int
		failures []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, account := range accounts {
		account := account
		g.Go(func() error {
			result, err := s.marketRepo.GetAccountTrades(gctx, account, page)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("Account trade history unavailable",
					zap.String("account", account),
					zap.Error(err),
				)
				failures = append(failures, account+": "+err.Error())
				return nil
			}
			lists = append(lists, result.Trades)
			fetched += len(result.Trades)
			total += max(result.TotalCount, len(result.Trades))
			return nil
		})
	}
	_ = g.Wait()

	// duplicates dropped from this page are dropped from the combined total too
	merged := MergeTrades(lists...)
	response := &TradeListResponse{
		Data:       s.tradesToDTOs(merged),
		Pagination: PaginationResponse{Total: total - (fetched - len(merged)), Page: page.Page, Limit: page.Limit},
	}

	if len(failures) > 0 {
		sort.Strings(failures)
		response.Degraded = true
		response.Error = strings.Join(failures, "; ")
		return response
	}

	s.store(ctx, cacheKey, response)
	return response
}

// MergeTrades merges trade lists, keeping the first trade seen per
// (trader, timestamp) pair, sorted newest first
func MergeTrades(lists ...[]entities.Trade) []entities.Trade {
	type key struct {
		trader string
		ts     int64
	}

	seen := make(map[key]struct{})
	merged := make([]entities.Trade, 0)
	for _, list := range lists {
		for _, t := range list {
			k := key{trader: strings.ToLower(t.Trader), ts: t.Timestamp.Unix()}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, t)
		}
	}

	SortTrades(merged, entities.SortDesc)
	return merged
}

// SortTrades sorts trades by timestamp in place
func SortTrades(trades []entities.Trade, order entities.SortOrder) {
	sort.SliceStable(trades, func(i, j int) bool {
		if order == entities.SortAsc {
			return trades[i].Timestamp.Before(trades[j].Timestamp)
		}
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
}

func (s *TradeHistoryService) store(ctx context.Context, cacheKey string, response *TradeListResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetWithTTL(ctx, cacheKey, response, s.ttl); err != nil {
		s.logger.Warn("Failed to cache response", zap.Error(err))
	}
}

// accountsCacheKey hashes the sorted account set so the key length stays bounded
func (s *TradeHistoryService) accountsCacheKey(accounts []string, page entities.PageQuery) string {
	sorted := append([]string(nil), accounts...)
	sort.Strings(sorted)
	hash := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return cache.Key("trades", "accounts", hex.EncodeToString(hash[:8]), strconv.Itoa(page.Page), strconv.Itoa(page.Limit))
}

func (s *TradeHistoryService) tradesToDTOs(trades []entities.Trade) []TradeDTO {
	dtos := make([]TradeDTO, len(trades))
	for i, t := range trades {
		side := string(entities.TradeTypeSell)
		if t.IsBuy {
			side = string(entities.TradeTypeBuy)
		}
		dtos[i] = TradeDTO{
			Trader:       strings.ToLower(t.Trader),
			TokenAddress: strings.ToLower(t.TokenAddress),
			Type:         side,
			TokenAmount:  format.FormatUnits(t.TokenAmount, format.NativeDecimals),
			NativeAmount: format.FormatUnits(t.NativeAmount, format.NativeDecimals),
			Timestamp:    t.Timestamp.Unix(),
			TimeAgo:      format.FormatRelativeTime(t.Timestamp.Unix(), s.now()),
			TxHash:       t.TxHash,
		}
	}
	return dtos
}

func (s *TradeHistoryService) refreshAges(dtos []TradeDTO) {
	for i := range dtos {
		dtos[i].TimeAgo = format.FormatRelativeTime(dtos[i].Timestamp, s.now())
	}
}

func degradedTrades(page entities.PageQuery, err error) *TradeListResponse {
	return &TradeListResponse{
		Data:       []TradeDTO{},
		Pagination: PaginationResponse{Page: page.Page, Limit: page.Limit},
		Degraded:   true,
		Error:      err.Error(),
	}
}

// normalizeAccounts lower-cases, trims and deduplicates account addresses
func normalizeAccounts(accounts []string) []string {
	seen := make(map[string]bool, len(accounts))
	result := make([]string, 0, len(accounts))
	for _, a := range accounts {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		result = append(result, a)
	}
	return result
}
