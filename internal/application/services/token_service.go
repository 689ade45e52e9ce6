package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/format"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
)

// ErrTokenUnavailable is returned when neither the upstream API nor the chain can describe a token
var ErrTokenUnavailable = errors.New("token unavailable")

// Token detail sources
const (
	SourceUpstream = "upstream"
	SourceChain    = "chain"
)

// TokenService provides business logic for token listings and details
type TokenService struct {
	marketRepo repositories.MarketRepository
	metadata   repositories.TokenMetadataSource
	cache      *cache.RedisCache
	logger     *zap.Logger
	now        func() time.Time
}

// NewTokenService creates a new token service. metadata may be nil to disable the on-chain fallback.
func NewTokenService(
	marketRepo repositories.MarketRepository,
	metadata repositories.TokenMetadataSource,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		marketRepo: marketRepo,
		metadata:   metadata,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// TokenDTO is the API representation of a token
type TokenDTO struct {
	Address            string  `json:"address"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	ImageURI           string  `json:"image_uri"`
	Creator            string  `json:"creator"`
	TotalSupply        string  `json:"total_supply"`
	Decimals           int     `json:"decimals"`
	MarketCap          string  `json:"market_cap"`
	MarketCapFormatted float64 `json:"market_cap_formatted"`
	Price              string  `json:"price"`
	CreatedAt          int64   `json:"created_at"`
	CreatedAgo         string  `json:"created_ago"`
	IsListed           bool    `json:"is_listed"`
	IsLocked           bool    `json:"is_locked"`
}

// TokenListResponse is the API response for token list queries
type TokenListResponse struct {
	Data       []TokenDTO         `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
	Degraded   bool               `json:"degraded"`
	Error      string             `json:"error,omitempty"`
}

// TokenResponse is the API response for single token queries
type TokenResponse struct {
	Data   TokenDTO `json:"data"`
	Source string   `json:"source"`
}

// PaginationResponse contains pagination metadata
type PaginationResponse struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ListRecent retrieves tokens ordered by creation time
func (s *TokenService) ListRecent(ctx context.Context, page entities.PageQuery) *TokenListResponse {
	return s.list(ctx, entities.TokenListRecent, "", page, func() (*entities.TokenPage, error) {
		return s.marketRepo.ListTokens(ctx, entities.TokenListRecent, page.Normalize())
	})
}

// ListByMarketCap retrieves tokens ordered by market cap
func (s *TokenService) ListByMarketCap(ctx context.Context, page entities.PageQuery) *TokenListResponse {
	return s.list(ctx, entities.TokenListMarketCap, "", page, func() (*entities.TokenPage, error) {
		return s.marketRepo.ListTokens(ctx, entities.TokenListMarketCap, page.Normalize())
	})
}

// ListAccountTokens retrieves tokens held by an account
func (s *TokenService) ListAccountTokens(ctx context.Context, account string, page entities.PageQuery) *TokenListResponse {
	account = strings.ToLower(account)
	return s.list(ctx, entities.TokenListAccount, account, page, func() (*entities.TokenPage, error) {
		return s.marketRepo.GetAccountTokens(ctx, account, page.Normalize())
	})
}

// Search retrieves tokens matching a free-text query. A blank query matches nothing.
func (s *TokenService) Search(ctx context.Context, query string, page entities.PageQuery) *TokenListResponse {
	page = page.Normalize()
	query = strings.TrimSpace(query)
	if query == "" {
		return &TokenListResponse{
			Data:       []TokenDTO{},
			Pagination: PaginationResponse{Page: page.Page, Limit: page.Limit},
		}
	}

	return s.list(ctx, entities.TokenListSearch, query, page, func() (*entities.TokenPage, error) {
		return s.marketRepo.SearchTokens(ctx, query, page)
	})
}

// list runs one cached listing query. Upstream failures produce an empty, degraded page.
func (s *TokenService) list(
	ctx context.Context,
	kind entities.TokenListKind,
	subject string,
	page entities.PageQuery,
	fetch func() (*entities.TokenPage, error),
) *TokenListResponse {
	page = page.Normalize()

	// Generate cache key
	cacheKey := cache.Key("tokens", string(kind), subject, strconv.Itoa(page.Page), strconv.Itoa(page.Limit))

	// Try cache first
	var cached TokenListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			s.refreshAges(cached.Data)
			return &cached
		}
	}

	result, err := fetch()
	if err != nil {
		s.logger.Warn("Token listing unavailable",
			zap.String("kind", string(kind)),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return &TokenListResponse{
			Data:       []TokenDTO{},
			Pagination: PaginationResponse{Page: page.Page, Limit: page.Limit},
			Degraded:   true,
			Error:      err.Error(),
		}
	}

	dtos := make([]TokenDTO, len(result.Tokens))
	for i := range result.Tokens {
		dtos[i] = s.tokenToDTO(&result.Tokens[i])
	}

	response := &TokenListResponse{
		Data: dtos,
		Pagination: PaginationResponse{
			Total: result.TotalCount,
			Page:  page.Page,
			Limit: page.Limit,
		},
	}

	// Cache the response
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response
}

// GetToken retrieves token details, falling back to on-chain ERC-20 metadata
func (s *TokenService) GetToken(ctx context.Context, address string) (*TokenResponse, error) {
	address = strings.ToLower(address)

	// Generate cache key
	cacheKey := cache.Key("tokens", address)

	// Try cache first
	var cached TokenResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			cached.Data.CreatedAgo = s.ago(cached.Data.CreatedAt)
			return &cached, nil
		}
	}

	source := SourceUpstream
	token, err := s.marketRepo.GetToken(ctx, address)
	if err != nil {
		if s.metadata == nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
		}

		s.logger.Warn("Upstream token lookup failed, reading chain",
			zap.String("token", address),
			zap.Error(err),
		)

		token, err = s.metadata.GetTokenMetadata(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
		}
		source = SourceChain
	}

	response := &TokenResponse{
		Data:   s.tokenToDTO(token),
		Source: source,
	}

	// Cache the response
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

func (s *TokenService) refreshAges(dtos []TokenDTO) {
	for i := range dtos {
		dtos[i].CreatedAgo = s.ago(dtos[i].CreatedAt)
	}
}

func (s *TokenService) ago(unix int64) string {
	if unix == 0 {
		return ""
	}
	return format.FormatRelativeTime(unix, s.now())
}

// tokenToDTO converts a token entity to a DTO
func (s *TokenService) tokenToDTO(t *entities.Token) TokenDTO {
	var createdAt int64
	if !t.CreatedAt.IsZero() {
		createdAt = t.CreatedAt.Unix()
	}

	return TokenDTO{
		Address:            strings.ToLower(t.Address),
		Name:               t.Name,
		Symbol:             t.Symbol,
		ImageURI:           t.ImageURI,
		Creator:            strings.ToLower(t.Creator),
		TotalSupply:        t.TotalSupply,
		Decimals:           t.Decimals,
		MarketCap:          t.MarketCap,
		MarketCapFormatted: format.FormatMarketCap(t.MarketCap),
		Price:              t.Price,
		CreatedAt:          createdAt,
		CreatedAgo:         s.ago(createdAt),
		IsListed:           t.IsListed,
		IsLocked:           t.IsLocked,
	}
}
