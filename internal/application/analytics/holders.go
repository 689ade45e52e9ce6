package analytics

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/format"
)

// HolderInput is the raw data behind the holder stats widget
type HolderInput struct {
	Holdings    []entities.Holding
	TotalSupply *big.Int
}

// HolderStats summarizes how a token's supply is distributed
type HolderStats struct {
	HolderCount    int     `json:"holder_count"`
	Top10Percent   float64 `json:"top10_percent"`
	Whales         int     `json:"whales"`
	Medium         int     `json:"medium"`
	Small          int     `json:"small"`
	AverageBalance string  `json:"average_balance"`
	TotalSupply    string  `json:"total_supply"`
}

// ClassifyHolder buckets a balance by its share of supply: whale at 1% or more,
// medium at 0.1% or more, small otherwise. Unknown supply classifies as small.
func ClassifyHolder(balance, supply *big.Int) entities.HolderClass {
	if balance == nil || supply == nil || supply.Sign() <= 0 {
		return entities.HolderSmall
	}

	scaled := new(big.Int).Mul(balance, big.NewInt(100))
	if scaled.Cmp(supply) >= 0 {
		return entities.HolderWhale
	}
	scaled.Mul(balance, big.NewInt(1000))
	if scaled.Cmp(supply) >= 0 {
		return entities.HolderMedium
	}
	return entities.HolderSmall
}

// DeriveHolderStats computes distribution stats from sampled holdings.
// When total supply is unknown the sampled balances stand in for it.
func DeriveHolderStats(in HolderInput, _ Request) HolderStats {
	holdings := make([]entities.Holding, 0, len(in.Holdings))
	for _, h := range in.Holdings {
		if h.Balance != nil && h.Balance.Sign() > 0 {
			holdings = append(holdings, h)
		}
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].Balance.Cmp(holdings[j].Balance) > 0
	})

	sum := new(big.Int)
	for _, h := range holdings {
		sum.Add(sum, h.Balance)
	}

	supply := in.TotalSupply
	if supply == nil || supply.Sign() <= 0 {
		supply = sum
	}

	stats := HolderStats{
		HolderCount:    len(holdings),
		AverageBalance: "0",
		TotalSupply:    format.FormatUnits(supply, format.NativeDecimals),
	}
	if len(holdings) == 0 {
		return stats
	}

	top := new(big.Int)
	for i, h := range holdings {
		if i < 10 {
			top.Add(top, h.Balance)
		}
		switch ClassifyHolder(h.Balance, supply) {
		case entities.HolderWhale:
			stats.Whales++
		case entities.HolderMedium:
			stats.Medium++
		default:
			stats.Small++
		}
	}

	stats.Top10Percent = percentOf(top, supply)
	stats.AverageBalance = decimal.NewFromBigInt(sum, -format.NativeDecimals).
		Div(decimal.NewFromInt(int64(len(holdings)))).
		Round(6).
		String()

	return stats
}

// percentOf returns part/whole*100, or 0 when whole is not positive
func percentOf(part, whole *big.Int) float64 {
	if part == nil || whole == nil || whole.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromBigInt(part, 0).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromBigInt(whole, 0), 4).
		InexactFloat64()
}
