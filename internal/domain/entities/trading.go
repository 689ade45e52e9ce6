package entities

import (
	"math/big"
	"time"
)

// TradeDirection is the side of a trade against the bonding curve
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// IsBuy reports whether the direction is a buy
func (d TradeDirection) IsBuy() bool {
	return d == DirectionBuy
}

// Valid reports whether the direction is known
func (d TradeDirection) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// TradingStatus is the bonding-curve state of a token
type TradingStatus struct {
	TokenAddress string `json:"token_address"`
	IsListed     bool   `json:"is_listed"`
	IsLocked     bool   `json:"is_locked"`
}

// CanTrade reports whether bonding-curve trading is still open
func (s TradingStatus) CanTrade() bool {
	return !s.IsListed && !s.IsLocked
}

// Quote is the expected output of a trade at the time it was read
type Quote struct {
	TokenAddress string
	Direction    TradeDirection
	AmountIn     *big.Int
	AmountOut    *big.Int
	Router       string
}

// TradeRequest describes a trade the user wants to submit
type TradeRequest struct {
	TokenAddress string
	Direction    TradeDirection
	AmountIn     *big.Int
	// MinAmountOut is the caller's slippage bound. Nil applies the configured default.
	MinAmountOut *big.Int
}

// TradeResult is the outcome of a submitted trade
type TradeResult struct {
	JournalID    string
	TxHash       string
	Direction    TradeDirection
	TokenAddress string
	AmountIn     *big.Int
	MinAmountOut *big.Int
	BlockNumber  uint64
	GasUsed      uint64
	Success      bool
}

// Permit is an EIP-2612 permit authorizing the router to pull tokens
type Permit struct {
	Owner    string
	Spender  string
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
	V        uint8
	R        [32]byte
	S        [32]byte
}

// DeadlineFrom returns the unix deadline window after now
func DeadlineFrom(now time.Time, window time.Duration) *big.Int {
	return big.NewInt(now.Add(window).Unix())
}
