package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// MockMarketRepository is a mock implementation of MarketRepository
type MockMarketRepository struct {
	mu            sync.RWMutex
	tokens        map[string]*entities.Token
	listings      map[entities.TokenListKind][]entities.Token
	accountTokens map[string][]entities.Token
	tokenTrades   map[string][]entities.Trade
	accountTrades map[string][]entities.Trade

	// Function hooks for custom behavior
	GetTokenFunc         func(ctx context.Context, address string) (*entities.Token, error)
	ListTokensFunc       func(ctx context.Context, kind entities.TokenListKind, page entities.PageQuery) (*entities.TokenPage, error)
	SearchTokensFunc     func(ctx context.Context, query string, page entities.PageQuery) (*entities.TokenPage, error)
	GetAccountTokensFunc func(ctx context.Context, account string, page entities.PageQuery) (*entities.TokenPage, error)
	GetTokenTradesFunc   func(ctx context.Context, token string, page entities.PageQuery) (*entities.TradePage, error)
	GetAccountTradesFunc func(ctx context.Context, account string, page entities.PageQuery) (*entities.TradePage, error)

	// Call tracking
	Calls []MockCall
}

func NewMockMarketRepository() *MockMarketRepository {
	return &MockMarketRepository{
		tokens:        make(map[string]*entities.Token),
		listings:      make(map[entities.TokenListKind][]entities.Token),
		accountTokens: make(map[string][]entities.Token),
		tokenTrades:   make(map[string][]entities.Trade),
		accountTrades: make(map[string][]entities.Trade),
		Calls:         make([]MockCall, 0),
	}
}

func (m *MockMarketRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockMarketRepository) GetToken(ctx context.Context, address string) (*entities.Token, error) {
	m.record("GetToken", address)

	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[strings.ToLower(address)]
	if !ok {
		return nil, fmt.Errorf("token %s not found", address)
	}
	return t, nil
}

func (m *MockMarketRepository) ListTokens(ctx context.Context, kind entities.TokenListKind, page entities.PageQuery) (*entities.TokenPage, error) {
	m.record("ListTokens", kind, page)

	if m.ListTokensFunc != nil {
		return m.ListTokensFunc(ctx, kind, page)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginateTokens(m.listings[kind], page), nil
}

func (m *MockMarketRepository) SearchTokens(ctx context.Context, query string, page entities.PageQuery) (*entities.TokenPage, error) {
	m.record("SearchTokens", query, page)

	if m.SearchTokensFunc != nil {
		return m.SearchTokensFunc(ctx, query, page)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	matches := make([]entities.Token, 0)
	for _, t := range m.tokens {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.Symbol), q) {
			matches = append(matches, *t)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Address < matches[j].Address })
	return paginateTokens(matches, page), nil
}

func (m *MockMarketRepository) GetAccountTokens(ctx context.Context, account string, page entities.PageQuery) (*entities.TokenPage, error) {
	m.record("GetAccountTokens", account, page)

	if m.GetAccountTokensFunc != nil {
		return m.GetAccountTokensFunc(ctx, account, page)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginateTokens(m.accountTokens[strings.ToLower(account)], page), nil
}

func (m *MockMarketRepository) GetTokenTrades(ctx context.Context, token string, page entities.PageQuery) (*entities.TradePage, error) {
	m.record("GetTokenTrades", token, page)

	if m.GetTokenTradesFunc != nil {
		return m.GetTokenTradesFunc(ctx, token, page)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginateTrades(m.tokenTrades[strings.ToLower(token)], page), nil
}

func (m *MockMarketRepository) GetAccountTrades(ctx context.Context, account string, page entities.PageQuery) (*entities.TradePage, error) {
	m.record("GetAccountTrades", account, page)

	if m.GetAccountTradesFunc != nil {
		return m.GetAccountTradesFunc(ctx, account, page)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginateTrades(m.accountTrades[strings.ToLower(account)], page), nil
}

// Helper methods for test setup
func (m *MockMarketRepository) AddToken(token *entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[strings.ToLower(token.Address)] = token
}

func (m *MockMarketRepository) SetListing(kind entities.TokenListKind, tokens ...entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[kind] = tokens
}

func (m *MockMarketRepository) SetAccountTokens(account string, tokens ...entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountTokens[strings.ToLower(account)] = tokens
}

func (m *MockMarketRepository) SetTokenTrades(token string, trades ...entities.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenTrades[strings.ToLower(token)] = trades
}

func (m *MockMarketRepository) SetAccountTrades(account string, trades ...entities.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountTrades[strings.ToLower(account)] = trades
}

// CallCount returns how many times method was called
func (m *MockMarketRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countCalls(m.Calls, method)
}

// paginateTrades serves trades in the stored order, which tests treat as upstream order
func paginateTrades(trades []entities.Trade, page entities.PageQuery) *entities.TradePage {
	page = page.Normalize()
	start := min((page.Page-1)*page.Limit, len(trades))
	end := min(start+page.Limit, len(trades))
	return &entities.TradePage{
		Trades:     append([]entities.Trade(nil), trades[start:end]...),
		TotalCount: len(trades),
	}
}

func paginateTokens(tokens []entities.Token, page entities.PageQuery) *entities.TokenPage {
	page = page.Normalize()
	start := (page.Page - 1) * page.Limit
	if start > len(tokens) {
		start = len(tokens)
	}
	end := start + page.Limit
	if end > len(tokens) {
		end = len(tokens)
	}
	return &entities.TokenPage{
		Tokens:     append([]entities.Token(nil), tokens[start:end]...),
		TotalCount: len(tokens),
	}
}

// MockIndexerRepository is a mock implementation of IndexerRepository
type MockIndexerRepository struct {
	mu        sync.RWMutex
	holdings  []entities.Holding
	transfers []entities.Transfer
	trades    []entities.Trade
	created   map[string][]entities.CreatedToken

	// Function hooks for custom behavior
	GetHoldingsFunc         func(ctx context.Context, token string, limit int) ([]entities.Holding, error)
	GetAccountsHoldingsFunc func(ctx context.Context, accounts []string) ([]entities.Holding, error)
	GetTransfersFunc        func(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error)
	GetTradesFunc           func(ctx context.Context, token string, since time.Time) ([]entities.Trade, error)
	GetCreatedTokensFunc    func(ctx context.Context, creator string) ([]entities.CreatedToken, error)

	// Call tracking
	Calls []MockCall
}

func NewMockIndexerRepository() *MockIndexerRepository {
	return &MockIndexerRepository{
		holdings:  make([]entities.Holding, 0),
		transfers: make([]entities.Transfer, 0),
		trades:    make([]entities.Trade, 0),
		created:   make(map[string][]entities.CreatedToken),
		Calls:     make([]MockCall, 0),
	}
}

func (m *MockIndexerRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockIndexerRepository) GetHoldings(ctx context.Context, token string, limit int) ([]entities.Holding, error) {
	m.record("GetHoldings", token, limit)

	if m.GetHoldingsFunc != nil {
		return m.GetHoldingsFunc(ctx, token, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Holding, 0)
	for _, h := range m.holdings {
		if strings.EqualFold(h.TokenAddress, token) && h.Balance.Sign() > 0 {
			result = append(result, h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Balance.Cmp(result[j].Balance) > 0 })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockIndexerRepository) GetAccountsHoldings(ctx context.Context, accounts []string) ([]entities.Holding, error) {
	m.record("GetAccountsHoldings", accounts)

	if m.GetAccountsHoldingsFunc != nil {
		return m.GetAccountsHoldingsFunc(ctx, accounts)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		wanted[strings.ToLower(a)] = true
	}

	result := make([]entities.Holding, 0)
	for _, h := range m.holdings {
		if wanted[strings.ToLower(h.Account)] && h.Balance.Sign() > 0 {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *MockIndexerRepository) GetTransfers(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error) {
	m.record("GetTransfers", token, since)

	if m.GetTransfersFunc != nil {
		return m.GetTransfersFunc(ctx, token, since)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Transfer, 0)
	for _, t := range m.transfers {
		if strings.EqualFold(t.TokenAddress, token) && !t.Timestamp.Before(since) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockIndexerRepository) GetTrades(ctx context.Context, token string, since time.Time) ([]entities.Trade, error) {
	m.record("GetTrades", token, since)

	if m.GetTradesFunc != nil {
		return m.GetTradesFunc(ctx, token, since)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Trade, 0)
	for _, t := range m.trades {
		if strings.EqualFold(t.TokenAddress, token) && !t.Timestamp.Before(since) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockIndexerRepository) GetCreatedTokens(ctx context.Context, creator string) ([]entities.CreatedToken, error) {
	m.record("GetCreatedTokens", creator)

	if m.GetCreatedTokensFunc != nil {
		return m.GetCreatedTokensFunc(ctx, creator)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entities.CreatedToken(nil), m.created[strings.ToLower(creator)]...), nil
}

// Helper methods for test setup
func (m *MockIndexerRepository) AddHoldings(holdings ...entities.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = append(m.holdings, holdings...)
}

func (m *MockIndexerRepository) AddTransfers(transfers ...entities.Transfer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, transfers...)
}

func (m *MockIndexerRepository) AddTrades(trades ...entities.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trades...)
}

func (m *MockIndexerRepository) AddCreatedTokens(creator string, tokens ...entities.CreatedToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(creator)
	m.created[key] = append(m.created[key], tokens...)
}

// CallCount returns how many times method was called
func (m *MockIndexerRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countCalls(m.Calls, method)
}

// MockTransferSource is a mock implementation of TransferSource
type MockTransferSource struct {
	mu sync.Mutex

	Transfers []entities.Transfer
	Error     error
	Calls     []MockCall
}

func NewMockTransferSource() *MockTransferSource {
	return &MockTransferSource{Calls: make([]MockCall, 0)}
}

func (m *MockTransferSource) GetTransfers(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "GetTransfers", Args: []interface{}{token, since}})

	if m.Error != nil {
		return nil, m.Error
	}

	result := make([]entities.Transfer, 0)
	for _, t := range m.Transfers {
		if !t.Timestamp.Before(since) {
			result = append(result, t)
		}
	}
	return result, nil
}

// MockJournalRepository is a mock implementation of JournalRepository
type MockJournalRepository struct {
	mu      sync.RWMutex
	entries map[string]*entities.JournalEntry
	order   []string

	// Function hooks for custom behavior
	InsertFunc       func(ctx context.Context, entry *entities.JournalEntry) error
	UpdateStatusFunc func(ctx context.Context, id string, status entities.JournalStatus, txHash, errMsg string) error

	// Call tracking
	Calls []MockCall
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{
		entries: make(map[string]*entities.JournalEntry),
		order:   make([]string, 0),
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockJournalRepository) Insert(ctx context.Context, entry *entities.JournalEntry) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Insert", Args: []interface{}{entry}})
	m.mu.Unlock()

	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *entry
	m.entries[entry.ID] = &stored
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MockJournalRepository) UpdateStatus(ctx context.Context, id string, status entities.JournalStatus, txHash, errMsg string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "UpdateStatus", Args: []interface{}{id, status, txHash, errMsg}})
	m.mu.Unlock()

	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, txHash, errMsg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("journal entry %s not found", id)
	}
	entry.Status = status
	if txHash != "" {
		entry.TxHash = txHash
	}
	entry.Error = errMsg
	return nil
}

func (m *MockJournalRepository) ListByAccount(ctx context.Context, account string, limit int) ([]entities.JournalEntry, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "ListByAccount", Args: []interface{}{account, limit}})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.JournalEntry, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		entry := m.entries[m.order[i]]
		if !strings.EqualFold(entry.Account, account) {
			continue
		}
		result = append(result, *entry)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Entry returns a copy of the stored entry with the given id
func (m *MockJournalRepository) Entry(id string) (entities.JournalEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	if !ok {
		return entities.JournalEntry{}, false
	}
	return *entry, true
}

// Entries returns every stored entry in insertion order
func (m *MockJournalRepository) Entries() []entities.JournalEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entities.JournalEntry, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.entries[id])
	}
	return result
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}

func countCalls(calls []MockCall, method string) int {
	n := 0
	for _, c := range calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// addressKey normalizes an address for map lookups
func addressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// zeroIfNil returns a fresh zero when v is nil
func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// MockMetadataSource is a mock implementation of TokenMetadataSource
type MockMetadataSource struct {
	mu sync.Mutex

	Tokens map[string]*entities.Token
	Error  error
	Calls  []MockCall
}

func NewMockMetadataSource() *MockMetadataSource {
	return &MockMetadataSource{
		Tokens: make(map[string]*entities.Token),
		Calls:  make([]MockCall, 0),
	}
}

func (m *MockMetadataSource) GetTokenMetadata(ctx context.Context, address string) (*entities.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "GetTokenMetadata", Args: []interface{}{address}})

	if m.Error != nil {
		return nil, m.Error
	}
	t, ok := m.Tokens[strings.ToLower(address)]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", address)
	}
	return t, nil
}
