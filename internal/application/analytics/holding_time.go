package analytics

import (
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// HoldingTime summarizes how long addresses keep a token
type HoldingTime struct {
	AverageSeconds float64 `json:"average_seconds"`
	MedianSeconds  float64 `json:"median_seconds"`
	CurrentHolders int     `json:"current_holders"`
	ExitedHolders  int     `json:"exited_holders"`
}

type holderTimeline struct {
	balance       *big.Int
	firstAcquired time.Time
	exitedAt      time.Time
}

// DeriveHoldingTime replays transfers and measures, per address, the time from
// first acquisition until its balance last reached zero, or until now if still held.
func DeriveHoldingTime(transfers []entities.Transfer, req Request) HoldingTime {
	ordered := append([]entities.Transfer(nil), transfers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})

	timelines := make(map[string]*holderTimeline)
	get := func(addr string) *holderTimeline {
		tl, ok := timelines[addr]
		if !ok {
			tl = &holderTimeline{balance: new(big.Int)}
			timelines[addr] = tl
		}
		return tl
	}

	for _, t := range ordered {
		if t.Value == nil || t.Value.Sign() == 0 {
			continue
		}

		if from := strings.ToLower(t.FromAddress); from != entities.ZeroAddress {
			tl := get(from)
			tl.balance.Sub(tl.balance, t.Value)
			if tl.balance.Sign() <= 0 {
				tl.balance.SetInt64(0)
				if !tl.firstAcquired.IsZero() {
					tl.exitedAt = t.Timestamp
				}
			}
		}

		if to := strings.ToLower(t.ToAddress); to != entities.ZeroAddress {
			tl := get(to)
			tl.balance.Add(tl.balance, t.Value)
			if tl.firstAcquired.IsZero() {
				tl.firstAcquired = t.Timestamp
			}
			tl.exitedAt = time.Time{}
		}
	}

	var result HoldingTime
	durations := make([]float64, 0, len(timelines))
	for _, tl := range timelines {
		if tl.firstAcquired.IsZero() {
			continue
		}

		end := req.Now
		if tl.balance.Sign() == 0 {
			end = tl.exitedAt
			result.ExitedHolders++
		} else {
			result.CurrentHolders++
		}

		d := end.Sub(tl.firstAcquired).Seconds()
		if d < 0 {
			d = 0
		}
		durations = append(durations, d)
	}

	if len(durations) == 0 {
		return result
	}

	sort.Float64s(durations)
	total := 0.0
	for _, d := range durations {
		total += d
	}
	result.AverageSeconds = total / float64(len(durations))

	mid := len(durations) / 2
	if len(durations)%2 == 0 {
		result.MedianSeconds = (durations[mid-1] + durations[mid]) / 2
	} else {
		result.MedianSeconds = durations[mid]
	}

	return result
}
