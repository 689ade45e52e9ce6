// Package analytics derives dashboard widgets from indexer and chain data.
//
// Every widget is a fetch step followed by a pure derive step. Derivations are
// total: empty input produces a zero-shaped result, never NaN or Inf.
package analytics

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/cache"
)

// Request identifies one widget computation
type Request struct {
	Token     string
	Timeframe Timeframe
	Now       time.Time
}

// Result wraps derived widget data with freshness and failure information
type Result[T any] struct {
	Data       T         `json:"data"`
	Degraded   bool      `json:"degraded"`
	Error      string    `json:"error,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

// Widget fetches raw events of type E and derives a view of type T
type Widget[E, T any] struct {
	Name   string
	TTL    time.Duration
	Fetch  func(ctx context.Context, req Request) (E, error)
	Derive func(events E, req Request) T
}

// CacheKey returns the key a result is cached under
func (w Widget[E, T]) CacheKey(req Request) string {
	return cache.Key("analytics", w.Name, req.Token, string(req.Timeframe))
}

// Compute returns the cached result when present, otherwise fetches and derives it.
// A fetch failure yields the derivation of empty input flagged as degraded; a truncated
// fetch derives from the rows it got, also flagged. Neither is cached.
func (w Widget[E, T]) Compute(ctx context.Context, c *cache.RedisCache, logger *zap.Logger, req Request) Result[T] {
	cacheKey := w.CacheKey(req)

	var cached Result[T]
	if c != nil {
		if err := c.Get(ctx, cacheKey, &cached); err == nil {
			logger.Debug("Cache hit", zap.String("key", cacheKey))
			return cached
		}
	}

	events, err := w.Fetch(ctx, req)
	if err != nil {
		logger.Warn("Analytics fetch failed",
			zap.String("widget", w.Name),
			zap.String("token", req.Token),
			zap.Error(err),
		)
		if !errors.Is(err, repositories.ErrTruncated) {
			var empty E
			events = empty
		}
		return Result[T]{
			Data:       w.Derive(events, req),
			Degraded:   true,
			Error:      err.Error(),
			ComputedAt: req.Now,
		}
	}

	result := Result[T]{
		Data:       w.Derive(events, req),
		ComputedAt: req.Now,
	}

	if c != nil {
		if err := c.SetWithTTL(ctx, cacheKey, result, w.TTL); err != nil {
			logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return result
}
