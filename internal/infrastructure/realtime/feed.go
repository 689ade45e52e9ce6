package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// Feed wires the websocket client to the rate window, the hub and metrics
type Feed struct {
	client    *Client
	rates     *RateWindow
	hub       *Hub
	scheduler *cron.Cron
	config    config.FeedConfig
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.RWMutex
	lastBlock  uint64
	logsByKind map[entities.LogKind]int64

	done chan struct{}
	err  error
}

// NewFeed creates a feed streaming from wsURL, filtered to addresses
func NewFeed(cfg config.FeedConfig, wsURL string, addresses []string, hub *Hub, logger *zap.Logger, opts ...Option) *Feed {
	f := &Feed{
		rates:      NewRateWindow(cfg.RateWindow),
		hub:        hub,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
		logsByKind: make(map[entities.LogKind]int64),
		done:       make(chan struct{}),
	}

	f.client = NewClient(ClientConfig{
		URL:                  wsURL,
		Addresses:            addresses,
		BaseReconnectDelay:   cfg.BaseReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReadTimeout:          cfg.ReadTimeout,
	}, Callbacks{
		OnStateChange: f.onStateChange,
		OnBlock:       f.onBlock,
		OnLog:         f.onLog,
	}, logger, opts...)

	return f
}

// Start schedules window pruning and runs the client in the background
func (f *Feed) Start(ctx context.Context) error {
	f.scheduler = cron.New()
	if _, err := f.scheduler.AddFunc(f.config.PruneSchedule, f.prune); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", f.config.PruneSchedule, err)
	}
	f.scheduler.Start()

	go func() {
		defer close(f.done)
		err := f.client.Run(ctx)
		if err != nil && ctx.Err() == nil {
			f.logger.Error("Feed stopped", zap.Error(err))
		}
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
	}()

	f.logger.Info("Feed started",
		zap.String("prune_schedule", f.config.PruneSchedule),
		zap.Duration("rate_window", f.config.RateWindow),
	)
	return nil
}

// Wait blocks until the client stops and returns its final error
func (f *Feed) Wait() error {
	<-f.done
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Stop halts the prune schedule. Cancel the Start context to stop the client.
func (f *Feed) Stop() {
	if f.scheduler != nil {
		<-f.scheduler.Stop().Done()
	}
}

// Stats returns a snapshot of the feed
func (f *Feed) Stats() entities.FeedStats {
	blocksPerSecond, txPerSecond := f.rates.Rates(f.now())

	f.mu.RLock()
	defer f.mu.RUnlock()

	byKind := make(map[entities.LogKind]int64, len(f.logsByKind))
	for k, v := range f.logsByKind {
		byKind[k] = v
	}

	return entities.FeedStats{
		State:           string(f.client.State()),
		LastBlock:       f.lastBlock,
		BlocksPerSecond: blocksPerSecond,
		TxPerSecond:     txPerSecond,
		LogsByKind:      byKind,
		Reconnects:      f.client.Reconnects(),
	}
}

func (f *Feed) prune() {
	removed := f.rates.Prune(f.now())
	f.logger.Debug("Pruned feed rate window", zap.Int("removed", removed))
}

func (f *Feed) onStateChange(state State) {
	switch state {
	case StateConnected:
		feedConnected.Set(1)
	case StateReconnecting:
		feedConnected.Set(0)
		feedReconnectsTotal.Inc()
	default:
		feedConnected.Set(0)
	}

	if f.hub != nil {
		f.hub.Broadcast("state", state)
	}
}

func (f *Feed) onBlock(header entities.BlockHeader) {
	f.rates.RecordBlock(f.now())
	feedBlocksTotal.Inc()

	f.mu.Lock()
	if header.Number > f.lastBlock {
		f.lastBlock = header.Number
	}
	f.mu.Unlock()

	if f.hub != nil {
		f.hub.Broadcast("block", header)
	}
}

func (f *Feed) onLog(log entities.FeedLog) {
	f.rates.RecordTx(log.TxHash, f.now())
	feedLogsTotal.WithLabelValues(string(log.Kind)).Inc()

	f.mu.Lock()
	f.logsByKind[log.Kind]++
	f.mu.Unlock()

	if f.hub != nil {
		f.hub.Broadcast("log", log)
	}
}
