package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
)

// Backend is the subset of the node API used by the gateway.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

var _ Backend = (*ethclient.Client)(nil)

// Client wraps the node backend with retry logic and utilities
type Client struct {
	backend Backend
	config  config.EthereumConfig
	logger  *zap.Logger
	chainID *big.Int
}

// NewClient dials the node and verifies it serves the configured chain
func NewClient(cfg config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	c, err := NewClientWithBackend(client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("Connected to Ethereum node",
		zap.String("rpc_url", cfg.RPCURL),
		zap.Int64("chain_id", c.chainID.Int64()),
	)
	return c, nil
}

// NewClientWithBackend builds a client over an existing backend.
// A chain ID different from the configured one is refused.
func NewClientWithBackend(backend Backend, cfg config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if chainID.Int64() != cfg.ChainID {
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, chainID.Int64())
	}

	return &Client{
		backend: backend,
		config:  cfg,
		logger:  logger,
		chainID: chainID,
	}, nil
}

// Close closes the node connection
func (c *Client) Close() {
	c.backend.Close()
}

// retry runs a read with the configured retry budget, sleeping RetryDelay between attempts
func retry[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		c.logger.Warn("Node call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", op, c.config.MaxRetries, err)
}

// GetLatestBlockNumber returns the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return retry(ctx, c, "block_number", func() (uint64, error) {
		return c.backend.BlockNumber(ctx)
	})
}

// GetHeader returns a block header by number; nil means latest
func (c *Client) GetHeader(ctx context.Context, blockNumber *big.Int) (*types.Header, error) {
	return retry(ctx, c, "header_by_number", func() (*types.Header, error) {
		return c.backend.HeaderByNumber(ctx, blockNumber)
	})
}

// GetBlockTimestamp returns the timestamp of a block
func (c *Client) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := c.GetHeader(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// GetLogs retrieves logs matching the filter query
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return retry(ctx, c, "filter_logs", func() ([]types.Log, error) {
		return c.backend.FilterLogs(ctx, query)
	})
}

// CallContract executes a read-only call against the latest state
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	return retry(ctx, c, "eth_call", func() ([]byte, error) {
		return c.backend.CallContract(ctx, msg, nil)
	})
}

// BalanceAt returns the native balance of an account
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return retry(ctx, c, "balance", func() (*big.Int, error) {
		return c.backend.BalanceAt(ctx, account, nil)
	})
}

// BuildFilterQuery builds a log filter for the given contracts and event signatures
func (c *Client) BuildFilterQuery(fromBlock, toBlock *big.Int, addresses []common.Address, events ...common.Hash) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: addresses,
	}
	if len(events) > 0 {
		query.Topics = [][]common.Hash{events}
	}
	return query
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// Backend returns the underlying node backend for transaction submission
func (c *Client) Backend() Backend {
	return c.backend
}
