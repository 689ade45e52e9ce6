package testutil

import (
	"fmt"
	"math/big"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// Common test addresses
const (
	TokenAddress      = "0x9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f1a0b"
	OtherTokenAddress = "0x0b1a2f3e4d5c6b7a8f9e0d1c2b3a4f5e6d7c8b9a"
	CreatorAddress    = "0x4444444444444444444444444444444444444444"
	AliceAddress      = "0x1111111111111111111111111111111111111111"
	BobAddress        = "0x2222222222222222222222222222222222222222"
	CharlieAddr       = "0x3333333333333333333333333333333333333333"
)

// BaseTime is the fixed reference time used by fixtures
var BaseTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// Ether returns n * 10^18
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// CreateTestToken creates a test token with default values
func CreateTestToken(opts ...TokenOption) *entities.Token {
	t := &entities.Token{
		Address:     TokenAddress,
		Name:        "Nad Cat",
		Symbol:      "NCAT",
		ImageURI:    "https://storage.nad.fun/ncat.png",
		Creator:     CreatorAddress,
		TotalSupply: Ether(1_000_000_000).String(),
		Decimals:    18,
		MarketCap:   "1500000000000000000",
		Price:       "0.0000015",
		CreatedAt:   BaseTime,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

type TokenOption func(*entities.Token)

func TokenWithAddress(addr string) TokenOption {
	return func(t *entities.Token) {
		t.Address = addr
	}
}

func TokenWithName(name string) TokenOption {
	return func(t *entities.Token) {
		t.Name = name
	}
}

func TokenWithSymbol(symbol string) TokenOption {
	return func(t *entities.Token) {
		t.Symbol = symbol
	}
}

func TokenWithTotalSupply(supply *big.Int) TokenOption {
	return func(t *entities.Token) {
		t.TotalSupply = supply.String()
	}
}

// CreateTestTrade creates a test trade with default values
func CreateTestTrade(opts ...TradeOption) entities.Trade {
	t := entities.Trade{
		Trader:       AliceAddress,
		TokenAddress: TokenAddress,
		IsBuy:        true,
		TokenAmount:  Ether(1000),
		NativeAmount: Ether(1),
		Timestamp:    BaseTime,
		TxHash:       generateTxHash(0),
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

type TradeOption func(*entities.Trade)

func TradeWithTrader(addr string) TradeOption {
	return func(t *entities.Trade) {
		t.Trader = addr
	}
}

func TradeWithSell() TradeOption {
	return func(t *entities.Trade) {
		t.IsBuy = false
	}
}

func TradeWithAmounts(tokenAmount, nativeAmount *big.Int) TradeOption {
	return func(t *entities.Trade) {
		t.TokenAmount = tokenAmount
		t.NativeAmount = nativeAmount
	}
}

func TradeWithTimestamp(ts time.Time) TradeOption {
	return func(t *entities.Trade) {
		t.Timestamp = ts
	}
}

func TradeWithTxHash(hash string) TradeOption {
	return func(t *entities.Trade) {
		t.TxHash = hash
	}
}

// CreateTestTransfer creates a test transfer with default values
func CreateTestTransfer(opts ...TransferOption) entities.Transfer {
	t := entities.Transfer{
		TxHash:       generateTxHash(0),
		LogIndex:     0,
		BlockNumber:  12345678,
		Timestamp:    BaseTime,
		TokenAddress: TokenAddress,
		FromAddress:  AliceAddress,
		ToAddress:    BobAddress,
		Value:        Ether(100),
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

type TransferOption func(*entities.Transfer)

func WithTxHash(hash string) TransferOption {
	return func(t *entities.Transfer) {
		t.TxHash = hash
	}
}

func WithTimestamp(ts time.Time) TransferOption {
	return func(t *entities.Transfer) {
		t.Timestamp = ts
	}
}

func WithFromAddress(addr string) TransferOption {
	return func(t *entities.Transfer) {
		t.FromAddress = addr
	}
}

func WithToAddress(addr string) TransferOption {
	return func(t *entities.Transfer) {
		t.ToAddress = addr
	}
}

func WithValue(val *big.Int) TransferOption {
	return func(t *entities.Transfer) {
		t.Value = val
	}
}

// CreateTestHolding creates a holding of the default token
func CreateTestHolding(account string, balance *big.Int) entities.Holding {
	return entities.Holding{
		Account:      account,
		TokenAddress: TokenAddress,
		Balance:      balance,
	}
}

// CreateMultipleTrades creates trades one minute apart, newest last
func CreateMultipleTrades(count int, opts ...TradeOption) []entities.Trade {
	trades := make([]entities.Trade, count)
	for i := 0; i < count; i++ {
		t := CreateTestTrade(opts...)
		t.Timestamp = t.Timestamp.Add(time.Duration(i) * time.Minute)
		t.TxHash = generateTxHash(i)
		trades[i] = t
	}
	return trades
}

// CreateMultipleTransfers creates multiple test transfers one minute apart
func CreateMultipleTransfers(count int, opts ...TransferOption) []entities.Transfer {
	transfers := make([]entities.Transfer, count)
	for i := 0; i < count; i++ {
		t := CreateTestTransfer(opts...)
		t.LogIndex = i
		t.BlockNumber = int64(12345678 + i)
		t.Timestamp = t.Timestamp.Add(time.Duration(i) * time.Minute)
		t.TxHash = generateTxHash(i)
		transfers[i] = t
	}
	return transfers
}

func generateTxHash(index int) string {
	return fmt.Sprintf("0x%064x", index+1)
}
