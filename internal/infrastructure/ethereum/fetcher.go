package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
)

// logBatchSize caps the block span of a single eth_getLogs request
const logBatchSize = 1000

// Ensure Fetcher implements TransferSource
var _ repositories.TransferSource = (*Fetcher)(nil)

// Fetcher reads Transfer events straight from the node.
// It backs the analytics widgets when the indexer is unavailable.
type Fetcher struct {
	client *Client
	config config.AnalyticsConfig
	logger *zap.Logger
}

// NewFetcher creates a new on-chain transfer fetcher
func NewFetcher(client *Client, cfg config.AnalyticsConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// GetTransfers returns transfers of token at or after since, scanning at most FallbackBlocks recent blocks
func (f *Fetcher) GetTransfers(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error) {
	latest, err := f.client.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	fromBlock := int64(latest) - f.config.FallbackBlocks + 1
	if fromBlock < 0 {
		fromBlock = 0
	}

	var transfers []entities.Transfer
	for _, r := range SplitBlockRange(fromBlock, int64(latest), logBatchSize) {
		batch, err := f.FetchTransfers(ctx, []string{token}, r.From, r.To)
		if err != nil {
			return nil, err
		}
		for _, t := range batch.Transfers {
			if !t.Timestamp.Before(since) {
				transfers = append(transfers, t)
			}
		}
	}

	return transfers, nil
}

// FetchResult contains the result of fetching transfers
type FetchResult struct {
	Transfers      []entities.Transfer
	FromBlock      int64
	ToBlock        int64
	FailedLogCount int
}

// FetchTransfers fetches Transfer events for a range of blocks
func (f *Fetcher) FetchTransfers(ctx context.Context, tokenAddresses []string, fromBlock, toBlock int64) (*FetchResult, error) {
	addresses := make([]common.Address, len(tokenAddresses))
	for i, addr := range tokenAddresses {
		addresses[i] = common.HexToAddress(addr)
	}

	query := f.client.BuildFilterQuery(
		big.NewInt(fromBlock),
		big.NewInt(toBlock),
		addresses,
		TransferEventSignature,
	)

	f.logger.Debug("Fetching logs",
		zap.Int64("from_block", fromBlock),
		zap.Int64("to_block", toBlock),
		zap.String("tokens", strings.Join(tokenAddresses, ",")),
	)

	logs, err := f.client.GetLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}

	if len(logs) == 0 {
		return &FetchResult{
			Transfers: []entities.Transfer{},
			FromBlock: fromBlock,
			ToBlock:   toBlock,
		}, nil
	}

	blockNumbers := make(map[uint64]struct{})
	for _, log := range logs {
		blockNumbers[log.BlockNumber] = struct{}{}
	}

	blockTimestamps, err := f.fetchBlockTimestamps(ctx, blockNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block timestamps: %w", err)
	}

	transfers, failedIndices := ParseTransferLogs(logs, blockTimestamps)

	if len(failedIndices) > 0 {
		f.logger.Warn("Failed to parse some logs",
			zap.Int("failed_count", len(failedIndices)),
			zap.Int("total_logs", len(logs)),
		)
	}

	return &FetchResult{
		Transfers:      transfers,
		FromBlock:      fromBlock,
		ToBlock:        toBlock,
		FailedLogCount: len(failedIndices),
	}, nil
}

// fetchBlockTimestamps fetches timestamps for multiple blocks concurrently
func (f *Fetcher) fetchBlockTimestamps(ctx context.Context, blockNumbers map[uint64]struct{}) (map[uint64]time.Time, error) {
	timestamps := make(map[uint64]time.Time)
	var mu sync.Mutex

	workers := f.config.FallbackWorkers
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for blockNum := range blockNumbers {
		blockNum := blockNum
		g.Go(func() error {
			timestamp, err := f.client.GetBlockTimestamp(ctx, blockNum)
			if err != nil {
				return fmt.Errorf("failed to get timestamp for block %d: %w", blockNum, err)
			}

			mu.Lock()
			timestamps[blockNum] = timestamp
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return timestamps, nil
}

// BlockRange represents a range of blocks to fetch
type BlockRange struct {
	From int64
	To   int64
}

// SplitBlockRange splits a range into batches
func SplitBlockRange(fromBlock, toBlock int64, batchSize int) []BlockRange {
	if fromBlock > toBlock || batchSize <= 0 {
		return nil
	}

	var ranges []BlockRange
	for current := fromBlock; current <= toBlock; current += int64(batchSize) {
		end := current + int64(batchSize) - 1
		if end > toBlock {
			end = toBlock
		}
		ranges = append(ranges, BlockRange{From: current, To: end})
	}

	return ranges
}
