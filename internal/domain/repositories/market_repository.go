package repositories

import (
	"context"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// MarketRepository defines read access to the upstream market API
type MarketRepository interface {
	// GetToken retrieves token metadata by address
	GetToken(ctx context.Context, address string) (*entities.Token, error)

	// ListTokens retrieves a page of tokens ordered by creation time or market cap
	ListTokens(ctx context.Context, kind entities.TokenListKind, page entities.PageQuery) (*entities.TokenPage, error)

	// SearchTokens retrieves tokens matching a free-text query
	SearchTokens(ctx context.Context, query string, page entities.PageQuery) (*entities.TokenPage, error)

	// GetAccountTokens retrieves tokens held by an account
	GetAccountTokens(ctx context.Context, account string, page entities.PageQuery) (*entities.TokenPage, error)

	// GetTokenTrades retrieves a page of swap history for a token, newest first
	GetTokenTrades(ctx context.Context, token string, page entities.PageQuery) (*entities.TradePage, error)

	// GetAccountTrades retrieves a page of swap history for an account, newest first
	GetAccountTrades(ctx context.Context, account string, page entities.PageQuery) (*entities.TradePage, error)
}

// TokenMetadataSource reads token metadata directly from the token contract
type TokenMetadataSource interface {
	// GetTokenMetadata returns a token carrying only the ERC-20 fields
	GetTokenMetadata(ctx context.Context, address string) (*entities.Token, error)
}
