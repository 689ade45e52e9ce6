package analytics

import (
	"math/big"
	"strings"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/format"
)

// CreatorInput is the raw data behind the creator insights widget
type CreatorInput struct {
	Creator     string
	Balance     *big.Int
	TotalSupply *big.Int
	Trades      []entities.Trade
	Created     []entities.CreatedToken
}

// CreatorInsights describes what a token's creator holds and has sold
type CreatorInsights struct {
	Creator       string  `json:"creator"`
	Balance       string  `json:"balance"`
	SupplyPercent float64 `json:"supply_percent"`
	SellCount     int     `json:"sell_count"`
	TokensSold    string  `json:"tokens_sold"`
	SellVolume    string  `json:"sell_volume"`
	TokensCreated int     `json:"tokens_created"`
}

// DeriveCreatorInsights summarizes the creator's position and sells of the token
func DeriveCreatorInsights(in CreatorInput, _ Request) CreatorInsights {
	creator := strings.ToLower(in.Creator)

	balance := in.Balance
	if balance == nil {
		balance = new(big.Int)
	}

	insights := CreatorInsights{
		Creator:       creator,
		Balance:       format.FormatUnits(balance, format.NativeDecimals),
		SupplyPercent: percentOf(balance, in.TotalSupply),
		TokensCreated: len(in.Created),
	}

	sold := new(big.Int)
	volume := new(big.Int)
	for _, t := range in.Trades {
		if t.IsBuy || creator == "" || strings.ToLower(t.Trader) != creator {
			continue
		}
		insights.SellCount++
		if t.TokenAmount != nil {
			sold.Add(sold, t.TokenAmount)
		}
		if t.NativeAmount != nil {
			volume.Add(volume, t.NativeAmount)
		}
	}

	insights.TokensSold = format.FormatUnits(sold, format.NativeDecimals)
	insights.SellVolume = format.FormatUnits(volume, format.NativeDecimals)

	return insights
}
