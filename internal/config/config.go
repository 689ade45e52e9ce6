package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Ethereum node configuration
	Ethereum EthereumConfig

	// Deployed contract addresses
	Contracts ContractsConfig

	// Upstream REST API configuration
	Upstream UpstreamConfig

	// GraphQL indexer configuration
	Indexer IndexerConfig

	// Database configuration (trade journal)
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Trading configuration
	Trading TradingConfig

	// Real-time feed configuration
	Feed FeedConfig

	// Analytics configuration
	Analytics AnalyticsConfig

	// Logging configuration
	Log LogConfig
}

// EthereumConfig holds EVM node connection settings
type EthereumConfig struct {
	RPCURL         string        `envconfig:"ETH_RPC_URL" default:"https://testnet-rpc.monad.xyz"`
	WSURL          string        `envconfig:"ETH_WS_URL" default:"wss://testnet-rpc.monad.xyz"`
	ChainID        int64         `envconfig:"ETH_CHAIN_ID" default:"10143"`
	RequestTimeout time.Duration `envconfig:"ETH_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"ETH_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"ETH_RETRY_DELAY" default:"1s"`
}

// ContractsConfig holds the addresses of the pre-deployed contracts
type ContractsConfig struct {
	BondingCurve       string `envconfig:"CONTRACT_BONDING_CURVE"`
	BondingCurveRouter string `envconfig:"CONTRACT_BONDING_CURVE_ROUTER"`
	DexRouter          string `envconfig:"CONTRACT_DEX_ROUTER"`
	Lens               string `envconfig:"CONTRACT_LENS"`
}

// Configured reports whether every contract address needed for trading is set
func (c ContractsConfig) Configured() bool {
	return c.BondingCurve != "" && c.BondingCurveRouter != "" && c.Lens != ""
}

// UpstreamConfig holds settings for the upstream REST API
type UpstreamConfig struct {
	BaseURL      string        `envconfig:"UPSTREAM_BASE_URL" default:"https://testnet-v3-api.nad.fun"`
	Timeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	MaxRetries   int           `envconfig:"UPSTREAM_MAX_RETRIES" default:"2"`
	RetryDelay   time.Duration `envconfig:"UPSTREAM_RETRY_DELAY" default:"500ms"`
	RateLimitRPS float64       `envconfig:"UPSTREAM_RATE_LIMIT_RPS" default:"20"`
	RateBurst    int           `envconfig:"UPSTREAM_RATE_BURST" default:"40"`
}

// IndexerConfig holds settings for the GraphQL indexer
type IndexerConfig struct {
	GraphQLURL string        `envconfig:"INDEXER_GRAPHQL_URL" default:"https://indexer.nad.fun/v1/graphql"`
	Timeout    time.Duration `envconfig:"INDEXER_TIMEOUT" default:"15s"`
	MaxRetries int           `envconfig:"INDEXER_MAX_RETRIES" default:"2"`
	PageSize   int           `envconfig:"INDEXER_PAGE_SIZE" default:"1000"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"false"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"nadfun"`
	Password        string        `envconfig:"DB_PASSWORD" default:"nadfun"`
	Name            string        `envconfig:"DB_NAME" default:"nadfun_gateway"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
	AllowedOrigins  []string      `envconfig:"API_ALLOWED_ORIGINS" default:"*"`
}

// TradingConfig holds settings for trade submission
type TradingConfig struct {
	PrivateKey          string        `envconfig:"TRADER_PRIVATE_KEY"`
	DefaultSlippageBps  int64         `envconfig:"TRADE_DEFAULT_SLIPPAGE_BPS" default:"100"`
	DeadlineWindow      time.Duration `envconfig:"TRADE_DEADLINE_WINDOW" default:"20m"`
	ReceiptPollInterval time.Duration `envconfig:"TRADE_RECEIPT_POLL_INTERVAL" default:"2s"`
	ReceiptTimeout      time.Duration `envconfig:"TRADE_RECEIPT_TIMEOUT" default:"2m"`
	PermitVersion       string        `envconfig:"TRADE_PERMIT_VERSION" default:"1"`
	GasLimitBufferPct   uint64        `envconfig:"TRADE_GAS_LIMIT_BUFFER_PCT" default:"20"`
}

// FeedConfig holds settings for the real-time block/log feed
type FeedConfig struct {
	Enabled              bool          `envconfig:"FEED_ENABLED" default:"true"`
	BaseReconnectDelay   time.Duration `envconfig:"FEED_BASE_RECONNECT_DELAY" default:"1s"`
	MaxReconnectAttempts int           `envconfig:"FEED_MAX_RECONNECT_ATTEMPTS" default:"5"`
	RateWindow           time.Duration `envconfig:"FEED_RATE_WINDOW" default:"60s"`
	PruneSchedule        string        `envconfig:"FEED_PRUNE_SCHEDULE" default:"@every 1m"`
	ReadTimeout          time.Duration `envconfig:"FEED_READ_TIMEOUT" default:"90s"`
}

// AnalyticsConfig holds settings for the analytics widgets
type AnalyticsConfig struct {
	HolderSample    int           `envconfig:"ANALYTICS_HOLDER_SAMPLE" default:"500"`
	AlsoBoughtTop   int           `envconfig:"ANALYTICS_ALSO_BOUGHT_TOP" default:"50"`
	FallbackBlocks  int64         `envconfig:"ANALYTICS_FALLBACK_BLOCKS" default:"5000"`
	ShortTTL        time.Duration `envconfig:"ANALYTICS_SHORT_TTL" default:"5s"`
	MediumTTL       time.Duration `envconfig:"ANALYTICS_MEDIUM_TTL" default:"30s"`
	LongTTL         time.Duration `envconfig:"ANALYTICS_LONG_TTL" default:"60s"`
	FetchWorkers    int           `envconfig:"ANALYTICS_FETCH_WORKERS" default:"4"`
	FallbackWorkers int           `envconfig:"ANALYTICS_FALLBACK_WORKERS" default:"4"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
