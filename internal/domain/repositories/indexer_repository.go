package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// ErrTruncated marks a paginated read that hit its page limit. The rows gathered
// so far are returned alongside an error wrapping it.
var ErrTruncated = errors.New("result truncated at page limit")

// IndexerRepository defines read access to the GraphQL event indexer
type IndexerRepository interface {
	// GetHoldings retrieves the largest non-zero balances of a token
	GetHoldings(ctx context.Context, token string, limit int) ([]entities.Holding, error)

	// GetAccountsHoldings retrieves every non-zero balance of the given accounts
	GetAccountsHoldings(ctx context.Context, accounts []string) ([]entities.Holding, error)

	// GetTrades retrieves trades of a token since the given time, oldest first
	GetTrades(ctx context.Context, token string, since time.Time) ([]entities.Trade, error)

	// GetCreatedTokens retrieves tokens deployed by a creator
	GetCreatedTokens(ctx context.Context, creator string) ([]entities.CreatedToken, error)

	TransferSource
}

// TransferSource provides ERC-20 transfer events for a token
type TransferSource interface {
	// GetTransfers retrieves transfers of a token since the given time, oldest first
	GetTransfers(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error)
}
