package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/ethereum"
)

// Trade validation errors. None of them issue a transaction.
var (
	ErrWalletNotConnected  = errors.New("wallet not connected")
	ErrTokenRequired       = errors.New("token address is required")
	ErrInvalidToken        = errors.New("invalid token address")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidDirection    = errors.New("direction must be buy or sell")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTradingDisabled     = errors.New("bonding-curve trading is closed for this token")
)

var (
	// ErrTradeReverted is returned when a submitted trade is mined but reverts
	ErrTradeReverted = errors.New("transaction reverted")

	// ErrJournalDisabled is returned when journal queries run without a database
	ErrJournalDisabled = errors.New("trade journal is disabled")
)

// statusCacheTTL bounds how stale a cached listed/locked status can be
const statusCacheTTL = 5 * time.Second

// bpsDenominator is 100% in basis points
const bpsDenominator = 10000

// TradingService validates, quotes and submits bonding-curve trades
type TradingService struct {
	contracts repositories.TradingContracts
	wallet    repositories.TradeSubmitter
	journal   repositories.JournalRepository
	cache     *cache.RedisCache
	config    config.TradingConfig
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewTradingService creates a new trading service.
// wallet nil disables submissions; journal nil disables the trade journal.
func NewTradingService(
	contracts repositories.TradingContracts,
	wallet repositories.TradeSubmitter,
	journal repositories.JournalRepository,
	cache *cache.RedisCache,
	cfg config.TradingConfig,
	logger *zap.Logger,
) *TradingService {
	return &TradingService{
		contracts: contracts,
		wallet:    wallet,
		journal:   journal,
		cache:     cache,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// QuoteDTO is the API representation of a quote
type QuoteDTO struct {
	TokenAddress string `json:"token_address"`
	Direction    string `json:"direction"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	MinAmountOut string `json:"min_amount_out"`
	SlippageBps  int64  `json:"slippage_bps"`
	Router       string `json:"router"`
	Venue        string `json:"venue"`
}

// Wallet returns the trading wallet address, or the zero address without a wallet
func (s *TradingService) Wallet() common.Address {
	if s.wallet == nil {
		return common.Address{}
	}
	return s.wallet.Address()
}

// Status reads whether the token has graduated or is locked
func (s *TradingService) Status(ctx context.Context, token string) (*entities.TradingStatus, error) {
	addr, err := parseToken(token)
	if err != nil {
		return nil, err
	}

	cacheKey := cache.Key("trading", "status", addr.Hex())

	var cached entities.TradingStatus
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	listed, err := s.contracts.IsListed(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read listed status: %w", err)
	}
	locked, err := s.contracts.IsLocked(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read locked status: %w", err)
	}

	status := &entities.TradingStatus{
		TokenAddress: strings.ToLower(addr.Hex()),
		IsListed:     listed,
		IsLocked:     locked,
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, status, statusCacheTTL); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return status, nil
}

// Quote reads the expected output of a trade and the router that would execute it
func (s *TradingService) Quote(ctx context.Context, token string, direction entities.TradeDirection, amountIn *big.Int) (*entities.Quote, error) {
	addr, err := parseToken(token)
	if err != nil {
		return nil, err
	}
	if !direction.Valid() {
		return nil, ErrInvalidDirection
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	router, amountOut, err := s.contracts.GetAmountOut(ctx, addr, amountIn, direction.IsBuy())
	if err != nil {
		return nil, fmt.Errorf("failed to quote: %w", err)
	}

	return &entities.Quote{
		TokenAddress: strings.ToLower(addr.Hex()),
		Direction:    direction,
		AmountIn:     new(big.Int).Set(amountIn),
		AmountOut:    amountOut,
		Router:       router.Hex(),
	}, nil
}

// QuoteWithSlippage quotes a trade and applies the default slippage bound
func (s *TradingService) QuoteWithSlippage(ctx context.Context, token string, direction entities.TradeDirection, amountIn *big.Int) (*QuoteDTO, error) {
	quote, err := s.Quote(ctx, token, direction, amountIn)
	if err != nil {
		return nil, err
	}

	return &QuoteDTO{
		TokenAddress: quote.TokenAddress,
		Direction:    string(quote.Direction),
		AmountIn:     quote.AmountIn.String(),
		AmountOut:    quote.AmountOut.String(),
		MinAmountOut: MinAmountOut(quote.AmountOut, s.config.DefaultSlippageBps).String(),
		SlippageBps:  s.config.DefaultSlippageBps,
		Router:       quote.Router,
		Venue:        s.contracts.Venue(common.HexToAddress(quote.Router)),
	}, nil
}

// MinAmountOut applies a slippage bound in basis points to a quoted amount.
// Out-of-range values are clamped to [0, 10000].
func MinAmountOut(quoted *big.Int, slippageBps int64) *big.Int {
	if quoted == nil || quoted.Sign() <= 0 {
		return new(big.Int)
	}
	if slippageBps < 0 {
		slippageBps = 0
	}
	if slippageBps > bpsDenominator {
		slippageBps = bpsDenominator
	}

	out := new(big.Int).Mul(quoted, big.NewInt(bpsDenominator-slippageBps))
	return out.Div(out, big.NewInt(bpsDenominator))
}

// Submit dispatches a trade request by direction
func (s *TradingService) Submit(ctx context.Context, req entities.TradeRequest) (*entities.TradeResult, error) {
	switch req.Direction {
	case entities.DirectionBuy:
		return s.Buy(ctx, req)
	case entities.DirectionSell:
		return s.Sell(ctx, req)
	default:
		return nil, ErrInvalidDirection
	}
}

// Buy spends native currency on the token through the bonding-curve router
func (s *TradingService) Buy(ctx context.Context, req entities.TradeRequest) (*entities.TradeResult, error) {
	token, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	owner := s.wallet.Address()

	balance, err := s.contracts.NativeBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read native balance: %w", err)
	}
	if req.AmountIn.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, req.AmountIn)
	}

	if err := s.ensureTradable(ctx, token); err != nil {
		return nil, err
	}

	minOut, err := s.minAmountOut(ctx, token, req)
	if err != nil {
		return nil, err
	}

	deadline := entities.DeadlineFrom(s.now(), s.config.DeadlineWindow)
	data, err := ethereum.PackBuy(ethereum.BuyParams{
		AmountOutMin: minOut,
		Token:        token,
		To:           owner,
		Deadline:     deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode buy: %w", err)
	}

	return s.execute(ctx, req, token, minOut, data, req.AmountIn)
}

// Sell sells the token through the bonding-curve router using an EIP-2612 permit
func (s *TradingService) Sell(ctx context.Context, req entities.TradeRequest) (*entities.TradeResult, error) {
	token, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	owner := s.wallet.Address()

	balance, err := s.contracts.TokenBalance(ctx, token, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read token balance: %w", err)
	}
	if req.AmountIn.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, req.AmountIn)
	}

	if err := s.ensureTradable(ctx, token); err != nil {
		return nil, err
	}

	minOut, err := s.minAmountOut(ctx, token, req)
	if err != nil {
		return nil, err
	}

	router := s.contracts.Router()
	nonce, err := s.contracts.PermitNonce(ctx, token, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read permit nonce: %w", err)
	}
	name, err := s.contracts.TokenName(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to read token name: %w", err)
	}

	deadline := entities.DeadlineFrom(s.now(), s.config.DeadlineWindow)
	permit, err := ethereum.SignPermit(s.wallet.Key(), ethereum.PermitDomain{
		Name:    name,
		Version: s.config.PermitVersion,
		ChainID: s.wallet.ChainID(),
		Token:   token,
	}, router, req.AmountIn, nonce, deadline)
	if err != nil {
		return nil, err
	}

	data, err := ethereum.PackSellPermit(ethereum.SellPermitParams{
		AmountIn:        req.AmountIn,
		AmountOutMin:    minOut,
		AmountAllowance: req.AmountIn,
		Token:           token,
		To:              owner,
		Deadline:        deadline,
		V:               permit.V,
		R:               permit.R,
		S:               permit.S,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sell: %w", err)
	}

	return s.execute(ctx, req, token, minOut, data, nil)
}

// Journal lists recent trades submitted from an account
func (s *TradingService) Journal(ctx context.Context, account string, limit int) ([]entities.JournalEntry, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.journal.ListByAccount(ctx, strings.ToLower(account), limit)
}

// validate runs the checks that need no chain access
func (s *TradingService) validate(req entities.TradeRequest) (common.Address, error) {
	if s.wallet == nil {
		return common.Address{}, ErrWalletNotConnected
	}
	token, err := parseToken(req.TokenAddress)
	if err != nil {
		return common.Address{}, err
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return common.Address{}, ErrInvalidAmount
	}
	if req.MinAmountOut != nil && req.MinAmountOut.Sign() < 0 {
		return common.Address{}, ErrInvalidAmount
	}
	return token, nil
}

func (s *TradingService) ensureTradable(ctx context.Context, token common.Address) error {
	status, err := s.Status(ctx, token.Hex())
	if err != nil {
		return err
	}
	if !status.CanTrade() {
		return fmt.Errorf("%w: listed=%t locked=%t", ErrTradingDisabled, status.IsListed, status.IsLocked)
	}
	return nil
}

// minAmountOut returns the caller's bound, or the quote reduced by the default slippage
func (s *TradingService) minAmountOut(ctx context.Context, token common.Address, req entities.TradeRequest) (*big.Int, error) {
	if req.MinAmountOut != nil {
		return new(big.Int).Set(req.MinAmountOut), nil
	}

	_, quoted, err := s.contracts.GetAmountOut(ctx, token, req.AmountIn, req.Direction.IsBuy())
	if err != nil {
		return nil, fmt.Errorf("failed to quote: %w", err)
	}
	return MinAmountOut(quoted, s.config.DefaultSlippageBps), nil
}

// execute journals, submits once and waits for the receipt
func (s *TradingService) execute(
	ctx context.Context,
	req entities.TradeRequest,
	token common.Address,
	minOut *big.Int,
	data []byte,
	value *big.Int,
) (*entities.TradeResult, error) {
	owner := s.wallet.Address()
	router := s.contracts.Router()

	entry := &entities.JournalEntry{
		ID:           s.newID(),
		Direction:    string(req.Direction),
		TokenAddress: strings.ToLower(token.Hex()),
		Account:      strings.ToLower(owner.Hex()),
		AmountIn:     req.AmountIn.String(),
		MinAmountOut: minOut.String(),
		Status:       entities.JournalPending,
		CreatedAt:    s.now().UTC(),
		UpdatedAt:    s.now().UTC(),
	}
	s.journalInsert(ctx, entry)

	result := &entities.TradeResult{
		JournalID:    entry.ID,
		Direction:    req.Direction,
		TokenAddress: entry.TokenAddress,
		AmountIn:     new(big.Int).Set(req.AmountIn),
		MinAmountOut: minOut,
	}

	hash, err := s.wallet.Send(ctx, router, data, value)
	if err != nil {
		s.journalUpdate(ctx, entry.ID, entities.JournalFailed, "", err.Error())
		return nil, fmt.Errorf("failed to submit %s: %w", req.Direction, err)
	}
	result.TxHash = hash.Hex()
	s.journalUpdate(ctx, entry.ID, entities.JournalPending, result.TxHash, "")

	s.logger.Info("Trade submitted",
		zap.String("direction", string(req.Direction)),
		zap.String("token", entry.TokenAddress),
		zap.String("amount_in", entry.AmountIn),
		zap.String("min_amount_out", entry.MinAmountOut),
		zap.String("tx_hash", result.TxHash),
	)

	receipt, err := s.wallet.WaitReceipt(ctx, hash, s.config.ReceiptPollInterval, s.config.ReceiptTimeout)
	if err != nil {
		// The transaction may still be mined; the entry stays pending.
		return result, fmt.Errorf("failed to confirm %s: %w", result.TxHash, err)
	}

	result.GasUsed = receipt.GasUsed
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.journalUpdate(ctx, entry.ID, entities.JournalFailed, result.TxHash, ErrTradeReverted.Error())
		return result, fmt.Errorf("%w: %s", ErrTradeReverted, result.TxHash)
	}

	result.Success = true
	s.journalUpdate(ctx, entry.ID, entities.JournalSuccess, result.TxHash, "")
	s.invalidate(ctx, token, owner)

	s.logger.Info("Trade confirmed",
		zap.String("tx_hash", result.TxHash),
		zap.Uint64("block", result.BlockNumber),
		zap.Uint64("gas_used", result.GasUsed),
	)

	return result, nil
}

// staleAfterTrade lists the cache patterns a settled trade makes stale: entries
// naming the token or the trader, and every merged multi-account history, whose
// keys carry only a hash of their accounts.
func staleAfterTrade(token, trader common.Address) []string {
	return []string{
		cache.Mentioning(token.Hex()),
		cache.Mentioning(trader.Hex()),
		cache.Key("trades", "accounts") + ":*",
	}
}

func (s *TradingService) invalidate(ctx context.Context, token, trader common.Address) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, staleAfterTrade(token, trader)...); err != nil {
		s.logger.Warn("Failed to invalidate cache after trade",
			zap.String("token", token.Hex()),
			zap.String("trader", trader.Hex()),
			zap.Error(err),
		)
	}
}

func (s *TradingService) journalInsert(ctx context.Context, entry *entities.JournalEntry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Insert(ctx, entry); err != nil {
		s.logger.Warn("Failed to journal trade", zap.String("id", entry.ID), zap.Error(err))
	}
}

func (s *TradingService) journalUpdate(ctx context.Context, id string, status entities.JournalStatus, txHash, errMsg string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.UpdateStatus(ctx, id, status, txHash, errMsg); err != nil {
		s.logger.Warn("Failed to update journal entry", zap.String("id", id), zap.Error(err))
	}
}

func parseToken(token string) (common.Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return common.Address{}, ErrTokenRequired
	}
	if !common.IsHexAddress(token) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidToken, token)
	}
	return common.HexToAddress(token), nil
}
