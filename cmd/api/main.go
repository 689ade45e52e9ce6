package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/application/services"
	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/database"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/ethereum"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/indexer"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/realtime"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/upstream"
	"github.com/bimakw/nadfun-gateway/internal/logger"
	"github.com/bimakw/nadfun-gateway/internal/presentation/handlers"
	"github.com/bimakw/nadfun-gateway/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting nadfun gateway",
		zap.Int("port", cfg.API.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Redis cache (optional)
	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, log)
	if err != nil {
		log.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Connect to the trade journal database (optional)
	var db *database.PostgresDB
	var journal repositories.JournalRepository
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		journal = database.NewJournalRepo(db.DB())
	}

	// Off-chain sources
	market := upstream.NewClient(cfg.Upstream, log)
	indexerClient := indexer.NewClient(cfg.Indexer, log)

	// Chain access is optional: without it the gateway serves off-chain data only
	var metadata repositories.TokenMetadataSource
	var fallback repositories.TransferSource
	var tradingService *services.TradingService

	ethClient, err := ethereum.NewClient(cfg.Ethereum, log)
	if err != nil {
		log.Warn("Failed to connect to Ethereum node, chain features disabled", zap.Error(err))
	} else {
		defer ethClient.Close()

		metadata = ethereum.NewMetadataFetcher(ethClient, log)
		fallback = ethereum.NewFetcher(ethClient, cfg.Analytics, log)

		if cfg.Contracts.Configured() {
			contracts := ethereum.NewContracts(ethClient, cfg.Contracts)
			tradingService = services.NewTradingService(contracts, nil, journal, redisCache, cfg.Trading, log)
		} else {
			log.Warn("Contract addresses not configured, trading endpoints disabled")
		}
	}

	// Create services
	tokenService := services.NewTokenService(market, metadata, redisCache, log)
	tradeService := services.NewTradeHistoryService(market, redisCache, cfg.API.CacheTTL, cfg.Analytics.FetchWorkers, log)
	analyticsService := services.NewAnalyticsService(market, indexerClient, fallback, metadata, redisCache, cfg.Analytics, log)

	// Real-time feed (optional)
	var feed *realtime.Feed
	var hub *realtime.Hub
	var feedHandler *handlers.FeedHandler
	if cfg.Feed.Enabled {
		hub = realtime.NewHub(cfg.API.AllowedOrigins, log)
		feed = realtime.NewFeed(cfg.Feed, cfg.Ethereum.WSURL, feedAddresses(cfg.Contracts), hub, log)
		if err := feed.Start(ctx); err != nil {
			log.Fatal("Failed to start feed", zap.Error(err))
		}
		feedHandler = handlers.NewFeedHandler(feed, hub)
	} else {
		feedHandler = handlers.NewFeedHandler(nil, nil)
	}

	// Create handlers
	proxyHandler := handlers.NewProxyHandler(market, log)
	tokenHandler := handlers.NewTokenHandler(tokenService, log)
	tradeHandler := handlers.NewTradeHandler(tradeService, log)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, log)

	var dbChecker, cacheChecker handlers.HealthChecker
	if db != nil {
		dbChecker = db
	}
	if redisCache != nil {
		cacheChecker = redisCache
	}
	healthHandler := handlers.NewHealthHandler(dbChecker, cacheChecker)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.API.AllowedOrigins))

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/feed", feedHandler.Stream)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))

		proxyHandler.RegisterRoutes(r)

		r.Route("/v1", func(r chi.Router) {
			tokenHandler.RegisterRoutes(r)
			tradeHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			feedHandler.RegisterRoutes(r)
			if tradingService != nil {
				handlers.NewTradingHandler(tradingService, log).RegisterRoutes(r)
			}
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		log.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Received shutdown signal, shutting down server...")

	// Stop the feed before draining websocket clients
	cancel()
	if feed != nil {
		feed.Stop()
		_ = feed.Wait()
		hub.Close()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped")
}

// feedAddresses lists the configured contracts whose logs the feed follows
func feedAddresses(c config.ContractsConfig) []string {
	var addresses []string
	for _, addr := range []string{c.BondingCurve, c.BondingCurveRouter, c.DexRouter} {
		if addr != "" {
			addresses = append(addresses, addr)
		}
	}
	return addresses
}
