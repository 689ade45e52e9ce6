package analytics

import (
	"math/big"
	"strings"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/format"
)

// VelocityBucket is trading activity within one chart bucket
type VelocityBucket struct {
	Start      time.Time `json:"start"`
	Buys       int       `json:"buys"`
	Sells      int       `json:"sells"`
	BuyVolume  string    `json:"buy_volume"`
	SellVolume string    `json:"sell_volume"`
}

// Velocity summarizes trading activity over a timeframe
type Velocity struct {
	Timeframe     Timeframe        `json:"timeframe"`
	Buckets       []VelocityBucket `json:"buckets"`
	TotalBuys     int              `json:"total_buys"`
	TotalSells    int              `json:"total_sells"`
	TotalTrades   int              `json:"total_trades"`
	BuyVolume     string           `json:"buy_volume"`
	SellVolume    string           `json:"sell_volume"`
	TradesPerHour float64          `json:"trades_per_hour"`
	BuySellRatio  float64          `json:"buy_sell_ratio"`
	UniqueTraders int              `json:"unique_traders"`
}

// DeriveVelocity buckets trades inside the timeframe ending at req.Now.
// The buy/sell ratio equals the buy count when there are no sells.
func DeriveVelocity(trades []entities.Trade, req Request) Velocity {
	tf := req.Timeframe
	start := tf.Start(req.Now)
	n := tf.Buckets()

	buyVol := make([]*big.Int, n)
	sellVol := make([]*big.Int, n)
	buckets := make([]VelocityBucket, n)
	for i := range buckets {
		buckets[i].Start = start.Add(time.Duration(i) * tf.BucketSize())
		buyVol[i] = new(big.Int)
		sellVol[i] = new(big.Int)
	}

	v := Velocity{Timeframe: tf}
	totalBuy := new(big.Int)
	totalSell := new(big.Int)
	traders := make(map[string]struct{})

	for _, t := range trades {
		idx := tf.bucketIndex(t.Timestamp, req.Now)
		if idx < 0 {
			continue
		}

		amount := t.NativeAmount
		if amount == nil {
			amount = new(big.Int)
		}

		if t.IsBuy {
			buckets[idx].Buys++
			buyVol[idx].Add(buyVol[idx], amount)
			totalBuy.Add(totalBuy, amount)
			v.TotalBuys++
		} else {
			buckets[idx].Sells++
			sellVol[idx].Add(sellVol[idx], amount)
			totalSell.Add(totalSell, amount)
			v.TotalSells++
		}
		traders[strings.ToLower(t.Trader)] = struct{}{}
	}

	for i := range buckets {
		buckets[i].BuyVolume = format.FormatUnits(buyVol[i], format.NativeDecimals)
		buckets[i].SellVolume = format.FormatUnits(sellVol[i], format.NativeDecimals)
	}

	v.Buckets = buckets
	v.TotalTrades = v.TotalBuys + v.TotalSells
	v.BuyVolume = format.FormatUnits(totalBuy, format.NativeDecimals)
	v.SellVolume = format.FormatUnits(totalSell, format.NativeDecimals)
	v.UniqueTraders = len(traders)
	v.TradesPerHour = float64(v.TotalTrades) / tf.Duration().Hours()

	if v.TotalSells > 0 {
		v.BuySellRatio = float64(v.TotalBuys) / float64(v.TotalSells)
	} else {
		v.BuySellRatio = float64(v.TotalBuys)
	}

	return v
}
