package ethereum

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// TransferEventSignature is the keccak256 hash of Transfer(address,address,uint256)
var TransferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// ApprovalEventSignature is the keccak256 hash of Approval(address,address,uint256)
var ApprovalEventSignature = common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")

// ParseTransferEvent parses a raw log into a Transfer entity
func ParseTransferEvent(log types.Log, blockTimestamp time.Time) (*entities.Transfer, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("invalid number of topics: expected 3, got %d", len(log.Topics))
	}

	if log.Topics[0] != TransferEventSignature {
		return nil, fmt.Errorf("not a Transfer event")
	}

	// Indexed from/to are left-padded to 32 bytes
	fromAddress := common.BytesToAddress(log.Topics[1].Bytes())
	toAddress := common.BytesToAddress(log.Topics[2].Bytes())

	if len(log.Data) != 32 {
		return nil, fmt.Errorf("invalid data length: expected 32, got %d", len(log.Data))
	}

	return &entities.Transfer{
		TxHash:       log.TxHash.Hex(),
		LogIndex:     int(log.Index),
		BlockNumber:  int64(log.BlockNumber),
		Timestamp:    blockTimestamp,
		TokenAddress: strings.ToLower(log.Address.Hex()),
		FromAddress:  strings.ToLower(fromAddress.Hex()),
		ToAddress:    strings.ToLower(toAddress.Hex()),
		Value:        new(big.Int).SetBytes(log.Data),
	}, nil
}

// ParseTransferLogs parses multiple logs into Transfer entities
// Returns parsed transfers and a list of failed log indices
func ParseTransferLogs(logs []types.Log, blockTimestamps map[uint64]time.Time) ([]entities.Transfer, []int) {
	transfers := make([]entities.Transfer, 0, len(logs))
	failedIndices := make([]int, 0)

	for i, log := range logs {
		timestamp, ok := blockTimestamps[log.BlockNumber]
		if !ok {
			failedIndices = append(failedIndices, i)
			continue
		}

		transfer, err := ParseTransferEvent(log, timestamp)
		if err != nil {
			failedIndices = append(failedIndices, i)
			continue
		}

		transfers = append(transfers, *transfer)
	}

	return transfers, failedIndices
}

// IsTransferEvent checks if a log is a Transfer event
func IsTransferEvent(log types.Log) bool {
	return len(log.Topics) == 3 && log.Topics[0] == TransferEventSignature
}

// ClassifyLog labels a log by its first topic and extracts the address and value fields it can.
// Missing topics or short data leave the corresponding fields empty.
func ClassifyLog(log types.Log) entities.FeedLog {
	feedLog := entities.FeedLog{
		Kind:        entities.LogOther,
		Address:     strings.ToLower(log.Address.Hex()),
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}

	if len(log.Topics) == 0 {
		return feedLog
	}
	feedLog.Topic0 = log.Topics[0].Hex()

	switch log.Topics[0] {
	case TransferEventSignature:
		feedLog.Kind = entities.LogTransfer
	case ApprovalEventSignature:
		feedLog.Kind = entities.LogApproval
	default:
		return feedLog
	}

	// For approvals From/To hold owner/spender
	if len(log.Topics) > 1 {
		feedLog.From = topicAddress(log.Topics[1])
	}
	if len(log.Topics) > 2 {
		feedLog.To = topicAddress(log.Topics[2])
	}
	if len(log.Data) >= 32 {
		feedLog.Value = new(big.Int).SetBytes(log.Data[:32])
	}

	return feedLog
}

func topicAddress(topic common.Hash) string {
	return strings.ToLower(common.BytesToAddress(topic.Bytes()[12:]).Hex())
}
