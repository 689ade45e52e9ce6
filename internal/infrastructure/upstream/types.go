package upstream

import (
	"math/big"
	"strings"
	"time"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// Paths of the upstream REST API
const (
	PathToken        = "/token/"
	PathChart        = "/token/chart/"
	PathCreationTime = "/order/creation_time"
	PathMarketCap    = "/order/market_cap"
	PathSearch       = "/token/search"
	PathTokenSwaps   = "/token/swap/"
	PathAccountPos   = "/account/position/"
	PathAccountSwaps = "/account/swap/"
)

// CreationTimeFallback is served when the creation-time listing cannot be fetched
const CreationTimeFallback = `{"order_type":"creation_time","order_token":[],"total_count":0}`

type tokenInfo struct {
	TokenAddress string `json:"token_address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	ImageURI     string `json:"image_uri"`
	Creator      string `json:"creator"`
	TotalSupply  string `json:"total_supply"`
	MarketCap    string `json:"market_cap"`
	Price        string `json:"price"`
	CreatedAt    int64  `json:"created_at"`
	IsListing    bool   `json:"is_listing"`
	IsLocked     bool   `json:"is_locked"`
}

type tokenResponse struct {
	TokenInfo tokenInfo `json:"token_info"`
}

type orderResponse struct {
	OrderType  string      `json:"order_type"`
	OrderToken []tokenInfo `json:"order_token"`
	TotalCount int         `json:"total_count"`
}

type searchResponse struct {
	Tokens     []tokenInfo `json:"tokens"`
	TotalCount int         `json:"total_count"`
}

type position struct {
	Token tokenInfo `json:"token"`
}

type positionResponse struct {
	Positions  []position `json:"positions"`
	TotalCount int        `json:"total_count"`
}

type swapInfo struct {
	Account      string `json:"account"`
	TokenAddress string `json:"token_address"`
	IsBuy        bool   `json:"is_buy"`
	TokenAmount  string `json:"token_amount"`
	NativeAmount string `json:"native_amount"`
	CreatedAt    int64  `json:"created_at"`
	TxHash       string `json:"transaction_hash"`
}

type swapResponse struct {
	Swaps      []swapInfo `json:"swaps"`
	TotalCount int        `json:"total_count"`
}

func (t tokenInfo) toEntity() entities.Token {
	return entities.Token{
		Address:     strings.ToLower(t.TokenAddress),
		Name:        t.Name,
		Symbol:      t.Symbol,
		ImageURI:    t.ImageURI,
		Creator:     strings.ToLower(t.Creator),
		TotalSupply: t.TotalSupply,
		Decimals:    18,
		MarketCap:   t.MarketCap,
		Price:       t.Price,
		CreatedAt:   time.Unix(t.CreatedAt, 0).UTC(),
		IsListed:    t.IsListing,
		IsLocked:    t.IsLocked,
	}
}

func (s swapInfo) toEntity() entities.Trade {
	return entities.Trade{
		Trader:       strings.ToLower(s.Account),
		TokenAddress: strings.ToLower(s.TokenAddress),
		IsBuy:        s.IsBuy,
		TokenAmount:  parseBigInt(s.TokenAmount),
		NativeAmount: parseBigInt(s.NativeAmount),
		Timestamp:    time.Unix(s.CreatedAt, 0).UTC(),
		TxHash:       s.TxHash,
	}
}

func tokensToEntities(infos []tokenInfo) []entities.Token {
	tokens := make([]entities.Token, len(infos))
	for i, info := range infos {
		tokens[i] = info.toEntity()
	}
	return tokens
}

func parseBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
