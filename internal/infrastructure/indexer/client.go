package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
)

// Ensure Client implements IndexerRepository
var _ repositories.IndexerRepository = (*Client)(nil)

// maxPages bounds paginated scans so one widget cannot walk the whole index
const maxPages = 10

// Client queries the hosted GraphQL indexer
type Client struct {
	gql    *graphql.Client
	config config.IndexerConfig
	logger *zap.Logger
}

// NewClient creates a new indexer client
func NewClient(cfg config.IndexerConfig, logger *zap.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		gql:    graphql.NewClient(cfg.GraphQLURL, graphql.WithHTTPClient(httpClient)),
		config: cfg,
		logger: logger,
	}
}

type holdingNode struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

type transferNode struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Timestamp       string `json:"timestamp"`
	BlockNumber     string `json:"blockNumber"`
	LogIndex        string `json:"logIndex"`
	TransactionHash string `json:"transactionHash"`
}

type tradeNode struct {
	Trader          string `json:"trader"`
	IsBuy           bool   `json:"isBuy"`
	TokenAmount     string `json:"tokenAmount"`
	NativeAmount    string `json:"nativeAmount"`
	Timestamp       string `json:"timestamp"`
	TransactionHash string `json:"transactionHash"`
}

type tokenNode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	CreatedAt string `json:"createdAt"`
}

// GetHoldings retrieves the largest non-zero balances of a token
func (c *Client) GetHoldings(ctx context.Context, token string, limit int) ([]entities.Holding, error) {
	token = strings.ToLower(token)

	req := graphql.NewRequest(holdingsQuery)
	req.Var("token", token)
	req.Var("first", limit)

	var resp struct {
		Holdings []holdingNode `json:"holdings"`
	}
	if err := c.run(ctx, "holdings", req, &resp); err != nil {
		return nil, err
	}

	return toHoldings(resp.Holdings, token), nil
}

// GetAccountsHoldings retrieves every non-zero balance of the given accounts
func (c *Client) GetAccountsHoldings(ctx context.Context, accounts []string) ([]entities.Holding, error) {
	lowered := make([]string, len(accounts))
	for i, a := range accounts {
		lowered[i] = strings.ToLower(a)
	}

	nodes, err := fetchPages(ctx, c, "accounts_holdings", accountsHoldingsQuery,
		map[string]interface{}{"accounts": lowered},
		func(resp *struct {
			Holdings []holdingNode `json:"holdings"`
		}) []holdingNode {
			return resp.Holdings
		},
	)
	if err != nil && !errors.Is(err, repositories.ErrTruncated) {
		return nil, err
	}

	return toHoldings(nodes, ""), err
}

// GetTransfers retrieves transfers of a token since the given time, oldest first
func (c *Client) GetTransfers(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error) {
	token = strings.ToLower(token)

	nodes, err := fetchPages(ctx, c, "transfers", transfersQuery,
		map[string]interface{}{"token": token, "since": strconv.FormatInt(since.Unix(), 10)},
		func(resp *struct {
			Transfers []transferNode `json:"transfers"`
		}) []transferNode {
			return resp.Transfers
		},
	)
	if err != nil && !errors.Is(err, repositories.ErrTruncated) {
		return nil, err
	}

	transfers := make([]entities.Transfer, len(nodes))
	for i, n := range nodes {
		transfers[i] = entities.Transfer{
			TxHash:       n.TransactionHash,
			LogIndex:     int(parseInt(n.LogIndex)),
			BlockNumber:  parseInt(n.BlockNumber),
			Timestamp:    time.Unix(parseInt(n.Timestamp), 0).UTC(),
			TokenAddress: token,
			FromAddress:  strings.ToLower(n.From),
			ToAddress:    strings.ToLower(n.To),
			Value:        parseBigInt(n.Value),
		}
	}
	return transfers, err
}

// GetTrades retrieves trades of a token since the given time, oldest first
func (c *Client) GetTrades(ctx context.Context, token string, since time.Time) ([]entities.Trade, error) {
	token = strings.ToLower(token)

	nodes, err := fetchPages(ctx, c, "trades", tradesQuery,
		map[string]interface{}{"token": token, "since": strconv.FormatInt(since.Unix(), 10)},
		func(resp *struct {
			Trades []tradeNode `json:"trades"`
		}) []tradeNode {
			return resp.Trades
		},
	)
	if err != nil && !errors.Is(err, repositories.ErrTruncated) {
		return nil, err
	}

	trades := make([]entities.Trade, len(nodes))
	for i, n := range nodes {
		trades[i] = entities.Trade{
			Trader:       strings.ToLower(n.Trader),
			TokenAddress: token,
			IsBuy:        n.IsBuy,
			TokenAmount:  parseBigInt(n.TokenAmount),
			NativeAmount: parseBigInt(n.NativeAmount),
			Timestamp:    time.Unix(parseInt(n.Timestamp), 0).UTC(),
			TxHash:       n.TransactionHash,
		}
	}
	return trades, err
}

// GetCreatedTokens retrieves tokens deployed by a creator
func (c *Client) GetCreatedTokens(ctx context.Context, creator string) ([]entities.CreatedToken, error) {
	req := graphql.NewRequest(createdTokensQuery)
	req.Var("creator", strings.ToLower(creator))
	req.Var("first", c.config.PageSize)

	var resp struct {
		Tokens []tokenNode `json:"tokens"`
	}
	if err := c.run(ctx, "created_tokens", req, &resp); err != nil {
		return nil, err
	}

	tokens := make([]entities.CreatedToken, len(resp.Tokens))
	for i, n := range resp.Tokens {
		tokens[i] = entities.CreatedToken{
			Address:   strings.ToLower(n.ID),
			Name:      n.Name,
			Symbol:    n.Symbol,
			CreatedAt: parseInt(n.CreatedAt),
		}
	}
	return tokens, nil
}

// run executes a request, retrying failures with exponential backoff
func (c *Client) run(ctx context.Context, name string, req *graphql.Request, dest interface{}) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 250 * time.Millisecond

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.config.MaxRetries)), ctx)

	err := backoff.RetryNotify(func() error {
		return c.gql.Run(ctx, req, dest)
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Indexer query failed, retrying",
			zap.String("query", name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("indexer %s: %w", name, err)
	}
	return nil
}

// fetchPages walks skip-based pages until a short page. When maxPages full pages
// were read it returns them with an error wrapping repositories.ErrTruncated.
func fetchPages[R any, N any](
	ctx context.Context,
	c *Client,
	name, query string,
	vars map[string]interface{},
	extract func(*R) []N,
) ([]N, error) {
	pageSize := c.config.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	var all []N
	for page := 0; page < maxPages; page++ {
		req := graphql.NewRequest(query)
		for k, v := range vars {
			req.Var(k, v)
		}
		req.Var("first", pageSize)
		req.Var("skip", page*pageSize)

		var resp R
		if err := c.run(ctx, name, req, &resp); err != nil {
			return nil, err
		}

		nodes := extract(&resp)
		all = append(all, nodes...)
		if len(nodes) < pageSize {
			return all, nil
		}
	}

	c.logger.Warn("Indexer scan truncated",
		zap.String("query", name),
		zap.Int("pages", maxPages),
		zap.Int("rows", len(all)),
	)
	return all, fmt.Errorf("indexer %s: %w (%d rows)", name, repositories.ErrTruncated, len(all))
}

func toHoldings(nodes []holdingNode, token string) []entities.Holding {
	holdings := make([]entities.Holding, 0, len(nodes))
	for _, n := range nodes {
		tokenAddr := token
		if n.Token != "" {
			tokenAddr = strings.ToLower(n.Token)
		}
		holdings = append(holdings, entities.Holding{
			Account:      strings.ToLower(n.Account),
			TokenAddress: tokenAddr,
			Balance:      parseBigInt(n.Balance),
		})
	}
	return holdings
}

func parseBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
