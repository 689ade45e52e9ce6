package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
)

func TestSplitBlockRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  int64
		batch     int
		wantCount int
		wantLast  BlockRange
	}{
		{"exact multiple", 0, 1999, 1000, 2, BlockRange{From: 1000, To: 1999}},
		{"remainder", 10, 2500, 1000, 3, BlockRange{From: 2010, To: 2500}},
		{"single block", 5, 5, 1000, 1, BlockRange{From: 5, To: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges := SplitBlockRange(tt.from, tt.to, tt.batch)
			if len(ranges) != tt.wantCount {
				t.Fatalf("expected %d ranges, got %d", tt.wantCount, len(ranges))
			}
			if ranges[len(ranges)-1] != tt.wantLast {
				t.Errorf("expected last range %+v, got %+v", tt.wantLast, ranges[len(ranges)-1])
			}
		})
	}

	if SplitBlockRange(10, 5, 100) != nil {
		t.Error("expected nil for inverted range")
	}
	if SplitBlockRange(0, 5, 0) != nil {
		t.Error("expected nil for zero batch size")
	}
}

func TestFetcher_GetTransfers(t *testing.T) {
	backend := newFakeBackend()
	backend.blockNumber = 1500
	// fake headers: time = 1700000000 + block number
	backend.logs = []types.Log{
		createValidTransferLog(400, 0),  // outside the scanned window
		createValidTransferLog(1100, 0), // before since
		createValidTransferLog(1300, 1),
		createValidTransferLog(1450, 2),
	}

	client := newTestEthClient(t, backend)
	fetcher := NewFetcher(client, config.AnalyticsConfig{FallbackBlocks: 1000, FallbackWorkers: 2}, zap.NewNop())

	since := time.Unix(1700000000+1200, 0)
	transfers, err := fetcher.GetTransfers(context.Background(), "0xdAC17F958D2ee523a2206206994597C13D831ec7", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(transfers))
	}
	if transfers[0].BlockNumber != 1300 || transfers[1].BlockNumber != 1450 {
		t.Errorf("unexpected blocks %d, %d", transfers[0].BlockNumber, transfers[1].BlockNumber)
	}
	if transfers[0].Timestamp.Unix() != 1700001300 {
		t.Errorf("expected header timestamp, got %v", transfers[0].Timestamp)
	}
}

func TestFetcher_FetchTransfers_Empty(t *testing.T) {
	backend := newFakeBackend()
	client := newTestEthClient(t, backend)
	fetcher := NewFetcher(client, config.AnalyticsConfig{FallbackBlocks: 10}, zap.NewNop())

	result, err := fetcher.FetchTransfers(context.Background(), []string{common.Address{}.Hex()}, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transfers) != 0 || result.FailedLogCount != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.ToBlock != 10 {
		t.Errorf("expected to block 10, got %d", result.ToBlock)
	}
}

func TestClient_BuildFilterQuery(t *testing.T) {
	client := newTestEthClient(t, newFakeBackend())
	addr := common.HexToAddress("0x01")

	q := client.BuildFilterQuery(big.NewInt(1), big.NewInt(2), []common.Address{addr}, TransferEventSignature, ApprovalEventSignature)
	if len(q.Topics) != 1 || len(q.Topics[0]) != 2 {
		t.Errorf("expected one topic position with two signatures, got %v", q.Topics)
	}

	q = client.BuildFilterQuery(nil, nil, []common.Address{addr})
	if q.Topics != nil {
		t.Errorf("expected no topic filter, got %v", q.Topics)
	}
}
