package analytics

import (
	"time"
)

// Timeframe is the lookback window of a time-series widget
type Timeframe string

const (
	Timeframe1h  Timeframe = "1h"
	Timeframe6h  Timeframe = "6h"
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
)

// ParseTimeframe converts a query value into a Timeframe, defaulting to 24h
func ParseTimeframe(v string) Timeframe {
	switch Timeframe(v) {
	case Timeframe1h, Timeframe6h, Timeframe24h, Timeframe7d:
		return Timeframe(v)
	default:
		return Timeframe24h
	}
}

// Duration returns the length of the window
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1h:
		return time.Hour
	case Timeframe6h:
		return 6 * time.Hour
	case Timeframe7d:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BucketSize returns the width of one chart bucket
func (t Timeframe) BucketSize() time.Duration {
	switch t {
	case Timeframe1h:
		return 5 * time.Minute
	case Timeframe6h:
		return 30 * time.Minute
	case Timeframe7d:
		return 12 * time.Hour
	default:
		return time.Hour
	}
}

// Buckets returns the number of buckets covering the window
func (t Timeframe) Buckets() int {
	return int(t.Duration() / t.BucketSize())
}

// Start returns the beginning of the window ending at now
func (t Timeframe) Start(now time.Time) time.Time {
	return now.Add(-t.Duration())
}

// bucketIndex returns the bucket ts falls into, or -1 when outside the window
func (t Timeframe) bucketIndex(ts, now time.Time) int {
	start := t.Start(now)
	if ts.Before(start) || ts.After(now) {
		return -1
	}
	idx := int(ts.Sub(start) / t.BucketSize())
	if idx >= t.Buckets() {
		idx = t.Buckets() - 1
	}
	return idx
}
