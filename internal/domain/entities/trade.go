package entities

import (
	"math/big"
	"time"
)

// Trade is a buy or sell against a token
type Trade struct {
	Trader       string    `json:"trader"`
	TokenAddress string    `json:"token_address"`
	IsBuy        bool      `json:"is_buy"`
	TokenAmount  *big.Int  `json:"-"`
	NativeAmount *big.Int  `json:"-"`
	Timestamp    time.Time `json:"timestamp"`
	TxHash       string    `json:"tx_hash"`
}

// TradeType filters trades by side
type TradeType string

const (
	TradeTypeAll  TradeType = "all"
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// ParseTradeType converts a query value into a TradeType, defaulting to all
func ParseTradeType(v string) TradeType {
	switch TradeType(v) {
	case TradeTypeBuy, TradeTypeSell:
		return TradeType(v)
	default:
		return TradeTypeAll
	}
}

// Matches reports whether the trade passes the type filter
func (t TradeType) Matches(trade Trade) bool {
	switch t {
	case TradeTypeBuy:
		return trade.IsBuy
	case TradeTypeSell:
		return !trade.IsBuy
	default:
		return true
	}
}

// SortOrder orders trades by timestamp
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// TradePage is one page of upstream swap history, newest first
type TradePage struct {
	Trades     []Trade
	TotalCount int
}

// TradeFilter contains filters for querying trade history
type TradeFilter struct {
	Page  int
	Limit int
	Sort  SortOrder
	Type  TradeType
}

// DefaultTradeFilter returns a filter with sensible defaults
func DefaultTradeFilter() TradeFilter {
	return TradeFilter{
		Page:  1,
		Limit: 20,
		Sort:  SortDesc,
		Type:  TradeTypeAll,
	}
}
