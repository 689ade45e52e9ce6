package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/nadfun-gateway/internal/application/analytics"
	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
)

// allTime is the lower bound used by widgets that replay the full history
var allTime = time.Unix(0, 0).UTC()

// holdingsBatch bounds how many accounts one indexer portfolio query covers
const holdingsBatch = 10

// AnalyticsService computes the token dashboard widgets
type AnalyticsService struct {
	marketRepo  repositories.MarketRepository
	indexerRepo repositories.IndexerRepository
	fallback    repositories.TransferSource
	metadata    repositories.TokenMetadataSource
	cache       *cache.RedisCache
	config      config.AnalyticsConfig
	logger      *zap.Logger
	now         func() time.Time

	holderStats  analytics.Widget[analytics.HolderInput, analytics.HolderStats]
	holdingTime  analytics.Widget[[]entities.Transfer, analytics.HoldingTime]
	alsoBought   analytics.Widget[analytics.AlsoBoughtInput, analytics.AlsoBought]
	velocity     analytics.Widget[[]entities.Trade, analytics.Velocity]
	walletGrowth analytics.Widget[[]entities.Transfer, analytics.WalletGrowth]
	creator      analytics.Widget[analytics.CreatorInput, analytics.CreatorInsights]
}

// NewAnalyticsService creates a new analytics service.
// fallback serves transfers when the indexer fails; metadata supplies total supply
// when the upstream API cannot. Both may be nil.
func NewAnalyticsService(
	marketRepo repositories.MarketRepository,
	indexerRepo repositories.IndexerRepository,
	fallback repositories.TransferSource,
	metadata repositories.TokenMetadataSource,
	cache *cache.RedisCache,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) *AnalyticsService {
	s := &AnalyticsService{
		marketRepo:  marketRepo,
		indexerRepo: indexerRepo,
		fallback:    fallback,
		metadata:    metadata,
		cache:       cache,
		config:      cfg,
		logger:      logger,
		now:         time.Now,
	}

	s.holderStats = analytics.Widget[analytics.HolderInput, analytics.HolderStats]{
		Name:   "holders",
		TTL:    cfg.MediumTTL,
		Fetch:  s.fetchHolderInput,
		Derive: analytics.DeriveHolderStats,
	}
	s.holdingTime = analytics.Widget[[]entities.Transfer, analytics.HoldingTime]{
		Name: "holding_time",
		TTL:  cfg.LongTTL,
		Fetch: func(ctx context.Context, req analytics.Request) ([]entities.Transfer, error) {
			return s.transfers(ctx, req.Token, allTime)
		},
		Derive: analytics.DeriveHoldingTime,
	}
	s.alsoBought = analytics.Widget[analytics.AlsoBoughtInput, analytics.AlsoBought]{
		Name:   "also_bought",
		TTL:    cfg.LongTTL,
		Fetch:  s.fetchAlsoBoughtInput,
		Derive: analytics.DeriveAlsoBought,
	}
	s.velocity = analytics.Widget[[]entities.Trade, analytics.Velocity]{
		Name: "velocity",
		TTL:  cfg.ShortTTL,
		Fetch: func(ctx context.Context, req analytics.Request) ([]entities.Trade, error) {
			return s.indexerRepo.GetTrades(ctx, req.Token, req.Timeframe.Start(req.Now))
		},
		Derive: analytics.DeriveVelocity,
	}
	s.walletGrowth = analytics.Widget[[]entities.Transfer, analytics.WalletGrowth]{
		Name: "wallet_growth",
		TTL:  cfg.MediumTTL,
		Fetch: func(ctx context.Context, req analytics.Request) ([]entities.Transfer, error) {
			return s.transfers(ctx, req.Token, req.Timeframe.Start(req.Now))
		},
		Derive: analytics.DeriveWalletGrowth,
	}
	s.creator = analytics.Widget[analytics.CreatorInput, analytics.CreatorInsights]{
		Name:   "creator",
		TTL:    cfg.MediumTTL,
		Fetch:  s.fetchCreatorInput,
		Derive: analytics.DeriveCreatorInsights,
	}

	return s
}

func (s *AnalyticsService) request(token string, tf analytics.Timeframe) analytics.Request {
	return analytics.Request{
		Token:     strings.ToLower(token),
		Timeframe: tf,
		Now:       s.now().UTC(),
	}
}

// HolderStats returns the holder distribution of a token
func (s *AnalyticsService) HolderStats(ctx context.Context, token string) analytics.Result[analytics.HolderStats] {
	return s.holderStats.Compute(ctx, s.cache, s.logger, s.request(token, ""))
}

// HoldingTime returns how long addresses hold a token
func (s *AnalyticsService) HoldingTime(ctx context.Context, token string) analytics.Result[analytics.HoldingTime] {
	return s.holdingTime.Compute(ctx, s.cache, s.logger, s.request(token, ""))
}

// AlsoBought returns other tokens held by a token's top holders
func (s *AnalyticsService) AlsoBought(ctx context.Context, token string) analytics.Result[analytics.AlsoBought] {
	return s.alsoBought.Compute(ctx, s.cache, s.logger, s.request(token, ""))
}

// Velocity returns bucketed trading activity over a timeframe
func (s *AnalyticsService) Velocity(ctx context.Context, token string, tf analytics.Timeframe) analytics.Result[analytics.Velocity] {
	return s.velocity.Compute(ctx, s.cache, s.logger, s.request(token, tf))
}

// WalletGrowth returns new-wallet counts over a timeframe
func (s *AnalyticsService) WalletGrowth(ctx context.Context, token string, tf analytics.Timeframe) analytics.Result[analytics.WalletGrowth] {
	return s.walletGrowth.Compute(ctx, s.cache, s.logger, s.request(token, tf))
}

// CreatorInsights returns the creator's position in a token
func (s *AnalyticsService) CreatorInsights(ctx context.Context, token string) analytics.Result[analytics.CreatorInsights] {
	return s.creator.Compute(ctx, s.cache, s.logger, s.request(token, ""))
}

func (s *AnalyticsService) fetchHolderInput(ctx context.Context, req analytics.Request) (analytics.HolderInput, error) {
	holdings, err := s.indexerRepo.GetHoldings(ctx, req.Token, s.config.HolderSample)
	if err != nil {
		return analytics.HolderInput{}, fmt.Errorf("failed to get holdings: %w", err)
	}

	// Unknown supply is not fatal: the derivation falls back to the sampled balances
	var supply *big.Int
	if token, err := s.tokenDetail(ctx, req.Token); err == nil {
		supply = parseSupply(token.TotalSupply)
	} else {
		s.logger.Debug("Total supply unavailable", zap.String("token", req.Token), zap.Error(err))
	}

	return analytics.HolderInput{Holdings: holdings, TotalSupply: supply}, nil
}

func (s *AnalyticsService) fetchAlsoBoughtInput(ctx context.Context, req analytics.Request) (analytics.AlsoBoughtInput, error) {
	top, err := s.indexerRepo.GetHoldings(ctx, req.Token, s.config.AlsoBoughtTop)
	if err != nil {
		return analytics.AlsoBoughtInput{}, fmt.Errorf("failed to get top holders: %w", err)
	}

	holders := make([]string, 0, len(top))
	for _, h := range top {
		holders = append(holders, h.Account)
	}
	if len(holders) == 0 {
		return analytics.AlsoBoughtInput{}, nil
	}

	holdings, err := s.accountsHoldings(ctx, holders)
	if err != nil {
		err = fmt.Errorf("failed to get holder portfolios: %w", err)
		if !errors.Is(err, repositories.ErrTruncated) {
			return analytics.AlsoBoughtInput{}, err
		}
	}

	return analytics.AlsoBoughtInput{Holders: holders, Holdings: holdings}, err
}

func (s *AnalyticsService) fetchCreatorInput(ctx context.Context, req analytics.Request) (analytics.CreatorInput, error) {
	token, err := s.tokenDetail(ctx, req.Token)
	if err != nil {
		return analytics.CreatorInput{}, err
	}
	creator := strings.ToLower(token.Creator)
	if creator == "" {
		return analytics.CreatorInput{}, errors.New("token creator unknown")
	}

	var (
		holdings  []entities.Holding
		trades    []entities.Trade
		created   []entities.CreatedToken
		truncated error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if holdings, err = s.indexerRepo.GetAccountsHoldings(gctx, []string{creator}); err != nil {
			return fmt.Errorf("failed to get creator holdings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		trades, err = s.indexerRepo.GetTrades(gctx, req.Token, allTime)
		if errors.Is(err, repositories.ErrTruncated) {
			truncated = fmt.Errorf("failed to get trades: %w", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get trades: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if created, err = s.indexerRepo.GetCreatedTokens(gctx, creator); err != nil {
			return fmt.Errorf("failed to get created tokens: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.CreatorInput{}, err
	}

	balance := new(big.Int)
	for _, h := range holdings {
		if strings.EqualFold(h.TokenAddress, req.Token) && h.Balance != nil {
			balance.Set(h.Balance)
		}
	}

	return analytics.CreatorInput{
		Creator:     creator,
		Balance:     balance,
		TotalSupply: parseSupply(token.TotalSupply),
		Trades:      trades,
		Created:     created,
	}, truncated
}

// accountsHoldings reads the portfolios of accounts in batches, fetched concurrently.
// Truncated batches keep their rows and the first truncation error is returned with the result.
func (s *AnalyticsService) accountsHoldings(ctx context.Context, accounts []string) ([]entities.Holding, error) {
	batches := make([][]entities.Holding, (len(accounts)+holdingsBatch-1)/holdingsBatch)
	truncated := make([]error, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i := range batches {
		start := i * holdingsBatch
		end := min(start+holdingsBatch, len(accounts))
		g.Go(func() error {
			holdings, err := s.indexerRepo.GetAccountsHoldings(gctx, accounts[start:end])
			if errors.Is(err, repositories.ErrTruncated) {
				truncated[i] = err
			} else if err != nil {
				return err
			}
			batches[i] = holdings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []entities.Holding
	for _, b := range batches {
		all = append(all, b...)
	}
	for _, err := range truncated {
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

func (s *AnalyticsService) workers() int {
	if s.config.FetchWorkers > 0 {
		return s.config.FetchWorkers
	}
	return 4
}

// transfers reads transfers from the indexer, falling back to on-chain logs
func (s *AnalyticsService) transfers(ctx context.Context, token string, since time.Time) ([]entities.Transfer, error) {
	transfers, err := s.indexerRepo.GetTransfers(ctx, token, since)
	if err == nil {
		return transfers, nil
	}
	// a truncated indexer read still spans more history than the chain scan window
	if errors.Is(err, repositories.ErrTruncated) {
		return transfers, fmt.Errorf("failed to get transfers: %w", err)
	}
	if s.fallback == nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	s.logger.Warn("Indexer transfers unavailable, scanning chain logs",
		zap.String("token", token),
		zap.Error(err),
	)

	transfers, fbErr := s.fallback.GetTransfers(ctx, token, since)
	if fbErr != nil {
		return nil, fmt.Errorf("failed to get transfers: indexer: %v; chain: %w", err, fbErr)
	}
	return transfers, nil
}

// tokenDetail reads the token from the upstream API, then from the chain
func (s *AnalyticsService) tokenDetail(ctx context.Context, token string) (*entities.Token, error) {
	t, err := s.marketRepo.GetToken(ctx, token)
	if err == nil {
		return t, nil
	}
	if s.metadata == nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	t, mdErr := s.metadata.GetTokenMetadata(ctx, token)
	if mdErr != nil {
		return nil, fmt.Errorf("failed to get token: upstream: %v; chain: %w", err, mdErr)
	}
	return t, nil
}

func parseSupply(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}
