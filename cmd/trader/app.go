package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/database"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/ethereum"
	"github.com/bimakw/nadfun-gateway/internal/logger"
)

// app holds the components one CLI invocation needs
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	service *services.TradingService
	asJSON  bool
	closers []func()
}

type appOptions struct {
	// needWallet loads TRADER_PRIVATE_KEY into a transactor
	needWallet bool
	// offline skips the node connection; only journal queries work
	offline     bool
	slippageBps int64
}

func newApp(ctx context.Context, cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if opts.slippageBps >= 0 {
		cfg.Trading.DefaultSlippageBps = opts.slippageBps
	}

	log, err := logger.New(cfg.Log, "stderr")
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	a.asJSON, _ = cmd.Flags().GetBool("json")
	a.closers = append(a.closers, func() { _ = log.Sync() })

	if err := a.init(ctx, opts); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, opts appOptions) error {
	cfg, log := a.cfg, a.log

	var journal repositories.JournalRepository
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg.Database, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		journal = database.NewJournalRepo(db.DB())
	}

	if opts.offline {
		a.service = services.NewTradingService(nil, nil, journal, nil, cfg.Trading, log)
		return nil
	}

	if !cfg.Contracts.Configured() {
		return errors.New("contract addresses are not configured (CONTRACT_BONDING_CURVE, CONTRACT_BONDING_CURVE_ROUTER, CONTRACT_LENS)")
	}

	ethClient, err := ethereum.NewClient(cfg.Ethereum, log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, ethClient.Close)

	var wallet repositories.TradeSubmitter
	if opts.needWallet {
		if cfg.Trading.PrivateKey == "" {
			return errors.New("TRADER_PRIVATE_KEY is not set")
		}
		transactor, err := ethereum.NewTransactor(ethClient, cfg.Trading.PrivateKey, cfg.Trading.GasLimitBufferPct, log)
		if err != nil {
			return err
		}
		wallet = transactor
	}

	// Redis is optional; when reachable a trade invalidates the gateway's cached token and wallet data
	var redisCache *cache.RedisCache
	if c, err := cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, log); err == nil {
		redisCache = c
		a.closers = append(a.closers, func() { _ = c.Close() })
	} else {
		log.Debug("Running without cache", zap.Error(err))
	}

	contracts := ethereum.NewContracts(ethClient, cfg.Contracts)
	a.service = services.NewTradingService(contracts, wallet, journal, redisCache, cfg.Trading, log)
	return nil
}

// walletAddress derives the configured wallet address without a node connection
func (a *app) walletAddress() (common.Address, error) {
	if a.cfg.Trading.PrivateKey == "" {
		return common.Address{}, errors.New("TRADER_PRIVATE_KEY is not set")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(a.cfg.Trading.PrivateKey, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// close releases resources in reverse order of acquisition
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
