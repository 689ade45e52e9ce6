package testutil

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract addresses used by the chain mocks
var (
	CurveRouterAddress = common.HexToAddress("0x5555555555555555555555555555555555555555")
	DexRouterAddress   = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

// MockTradingContracts is a mock implementation of TradingContracts
type MockTradingContracts struct {
	mu sync.RWMutex

	listed         map[string]bool
	locked         map[string]bool
	tokenBalances  map[string]*big.Int
	nativeBalances map[string]*big.Int
	nonces         map[string]*big.Int
	names          map[string]string

	// AmountOut is returned by GetAmountOut unless GetAmountOutFunc is set
	AmountOut   *big.Int
	QuoteRouter common.Address

	// Function hooks for custom behavior
	IsListedFunc     func(ctx context.Context, token common.Address) (bool, error)
	GetAmountOutFunc func(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error)

	// Call tracking
	Calls []MockCall
}

func NewMockTradingContracts() *MockTradingContracts {
	return &MockTradingContracts{
		listed:         make(map[string]bool),
		locked:         make(map[string]bool),
		tokenBalances:  make(map[string]*big.Int),
		nativeBalances: make(map[string]*big.Int),
		nonces:         make(map[string]*big.Int),
		names:          make(map[string]string),
		AmountOut:      new(big.Int),
		QuoteRouter:    CurveRouterAddress,
		Calls:          make([]MockCall, 0),
	}
}

func (m *MockTradingContracts) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockTradingContracts) Router() common.Address {
	return CurveRouterAddress
}

func (m *MockTradingContracts) Venue(router common.Address) string {
	switch router {
	case CurveRouterAddress:
		return "curve"
	case DexRouterAddress:
		return "dex"
	default:
		return "unknown"
	}
}

func (m *MockTradingContracts) IsListed(ctx context.Context, token common.Address) (bool, error) {
	m.record("IsListed", token)

	if m.IsListedFunc != nil {
		return m.IsListedFunc(ctx, token)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listed[addressKey(token)], nil
}

func (m *MockTradingContracts) IsLocked(ctx context.Context, token common.Address) (bool, error) {
	m.record("IsLocked", token)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locked[addressKey(token)], nil
}

func (m *MockTradingContracts) GetAmountOut(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error) {
	m.record("GetAmountOut", token, amountIn, isBuy)

	if m.GetAmountOutFunc != nil {
		return m.GetAmountOutFunc(ctx, token, amountIn, isBuy)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.QuoteRouter, zeroIfNil(m.AmountOut), nil
}

func (m *MockTradingContracts) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	m.record("TokenBalance", token, owner)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return zeroIfNil(m.tokenBalances[addressKey(token)+":"+addressKey(owner)]), nil
}

func (m *MockTradingContracts) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	m.record("NativeBalance", account)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return zeroIfNil(m.nativeBalances[addressKey(account)]), nil
}

func (m *MockTradingContracts) PermitNonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	m.record("PermitNonce", token, owner)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return zeroIfNil(m.nonces[addressKey(token)+":"+addressKey(owner)]), nil
}

func (m *MockTradingContracts) TokenName(ctx context.Context, token common.Address) (string, error) {
	m.record("TokenName", token)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if name, ok := m.names[addressKey(token)]; ok {
		return name, nil
	}
	return "Test Token", nil
}

// Helper methods for test setup
func (m *MockTradingContracts) SetStatus(token common.Address, listed, locked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed[addressKey(token)] = listed
	m.locked[addressKey(token)] = locked
}

func (m *MockTradingContracts) SetTokenBalance(token, owner common.Address, balance *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenBalances[addressKey(token)+":"+addressKey(owner)] = balance
}

func (m *MockTradingContracts) SetNativeBalance(account common.Address, balance *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nativeBalances[addressKey(account)] = balance
}

func (m *MockTradingContracts) SetNonce(token, owner common.Address, nonce *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonces[addressKey(token)+":"+addressKey(owner)] = nonce
}

func (m *MockTradingContracts) SetName(token common.Address, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[addressKey(token)] = name
}

// CallCount returns how many times method was called
func (m *MockTradingContracts) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countCalls(m.Calls, method)
}

// SentTx is a transaction captured by MockTradeSubmitter
type SentTx struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// MockTradeSubmitter is a mock implementation of TradeSubmitter with a fresh key
type MockTradeSubmitter struct {
	mu sync.Mutex

	key     *ecdsa.PrivateKey
	chainID *big.Int

	Sent []SentTx

	SendError error
	WaitError error

	// ReceiptStatus is the status of receipts returned by WaitReceipt
	ReceiptStatus uint64

	Calls []MockCall
}

func NewMockTradeSubmitter(chainID int64) *MockTradeSubmitter {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &MockTradeSubmitter{
		key:           key,
		chainID:       big.NewInt(chainID),
		Sent:          make([]SentTx, 0),
		ReceiptStatus: types.ReceiptStatusSuccessful,
		Calls:         make([]MockCall, 0),
	}
}

func (m *MockTradeSubmitter) Address() common.Address {
	return crypto.PubkeyToAddress(m.key.PublicKey)
}

func (m *MockTradeSubmitter) Key() *ecdsa.PrivateKey {
	return m.key
}

func (m *MockTradeSubmitter) ChainID() *big.Int {
	return new(big.Int).Set(m.chainID)
}

func (m *MockTradeSubmitter) Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "Send", Args: []interface{}{to, data, value}})

	if m.SendError != nil {
		return common.Hash{}, m.SendError
	}

	m.Sent = append(m.Sent, SentTx{To: to, Data: data, Value: zeroIfNil(value)})
	return common.BigToHash(big.NewInt(int64(len(m.Sent)))), nil
}

func (m *MockTradeSubmitter) WaitReceipt(ctx context.Context, hash common.Hash, interval, timeout time.Duration) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "WaitReceipt", Args: []interface{}{hash}})

	if m.WaitError != nil {
		return nil, m.WaitError
	}

	return &types.Receipt{
		Status:      m.ReceiptStatus,
		TxHash:      hash,
		BlockNumber: big.NewInt(100),
		GasUsed:     21000,
	}, nil
}

// SentCount returns how many transactions were submitted
func (m *MockTradeSubmitter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
