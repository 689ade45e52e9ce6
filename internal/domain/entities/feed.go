package entities

import (
	"math/big"
	"time"
)

// BlockHeader is a new block announced by the node
type BlockHeader struct {
	Number    uint64    `json:"number"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// LogKind classifies a contract event log by its first topic
type LogKind string

const (
	LogTransfer LogKind = "transfer"
	LogApproval LogKind = "approval"
	LogOther    LogKind = "other"
)

// FeedLog is a contract event log with best-effort parsed fields
type FeedLog struct {
	Kind        LogKind  `json:"kind"`
	Address     string   `json:"address"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Value       *big.Int `json:"value,omitempty"`
	Topic0      string   `json:"topic0"`
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	LogIndex    uint     `json:"log_index"`
}

// FeedStats summarizes the real-time feed
type FeedStats struct {
	State           string            `json:"state"`
	LastBlock       uint64            `json:"last_block"`
	BlocksPerSecond float64           `json:"blocks_per_second"`
	TxPerSecond     float64           `json:"tx_per_second"`
	LogsByKind      map[LogKind]int64 `json:"logs_by_kind"`
	Reconnects      int64             `json:"reconnects"`
}
