package analytics

import (
	"strings"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// GrowthBucket counts wallets first seen within one chart bucket
type GrowthBucket struct {
	Start             time.Time `json:"start"`
	NewWallets        int       `json:"new_wallets"`
	CumulativeWallets int       `json:"cumulative_wallets"`
}

// WalletGrowth tracks how fast new wallets pick up a token
type WalletGrowth struct {
	Timeframe     Timeframe      `json:"timeframe"`
	Buckets       []GrowthBucket `json:"buckets"`
	TotalWallets  int            `json:"total_wallets"`
	GrowthPercent float64        `json:"growth_percent"`
}

// DeriveWalletGrowth places each wallet in the bucket of its first inbound transfer.
// Growth compares the cumulative count of the last bucket to the first; starting
// from zero wallets any growth counts as 100%.
func DeriveWalletGrowth(transfers []entities.Transfer, req Request) WalletGrowth {
	tf := req.Timeframe
	start := tf.Start(req.Now)

	buckets := make([]GrowthBucket, tf.Buckets())
	for i := range buckets {
		buckets[i].Start = start.Add(time.Duration(i) * tf.BucketSize())
	}

	firstSeen := make(map[string]time.Time)
	for _, t := range transfers {
		to := strings.ToLower(t.ToAddress)
		if to == entities.ZeroAddress || to == "" {
			continue
		}
		if seen, ok := firstSeen[to]; !ok || t.Timestamp.Before(seen) {
			firstSeen[to] = t.Timestamp
		}
	}

	for _, ts := range firstSeen {
		if idx := tf.bucketIndex(ts, req.Now); idx >= 0 {
			buckets[idx].NewWallets++
		}
	}

	cumulative := 0
	for i := range buckets {
		cumulative += buckets[i].NewWallets
		buckets[i].CumulativeWallets = cumulative
	}

	g := WalletGrowth{
		Timeframe:    tf,
		Buckets:      buckets,
		TotalWallets: cumulative,
	}

	if len(buckets) > 0 {
		first := buckets[0].CumulativeWallets
		last := buckets[len(buckets)-1].CumulativeWallets
		switch {
		case first > 0:
			g.GrowthPercent = float64(last-first) * 100 / float64(first)
		case last > 0:
			g.GrowthPercent = 100
		}
	}

	return g
}
