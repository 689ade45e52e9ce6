package entities

import (
	"time"
)

// Token represents a launchpad token as reported by the upstream API
type Token struct {
	Address     string    `json:"address"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	ImageURI    string    `json:"image_uri"`
	Creator     string    `json:"creator"`
	TotalSupply string    `json:"total_supply"` // Raw supply (wei)
	Decimals    int       `json:"decimals"`
	MarketCap   string    `json:"market_cap"` // Raw market cap (wei of native currency)
	Price       string    `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	IsListed    bool      `json:"is_listed"`
	IsLocked    bool      `json:"is_locked"`
}

// TokenListKind identifies which listing a token page belongs to
type TokenListKind string

const (
	TokenListRecent    TokenListKind = "recent"
	TokenListMarketCap TokenListKind = "market_cap"
	TokenListAccount   TokenListKind = "account"
	TokenListSearch    TokenListKind = "search"
)

// TokenPage is one page of a token listing
type TokenPage struct {
	Tokens     []Token
	TotalCount int
}

// PageQuery holds pagination parameters for upstream listings
type PageQuery struct {
	Page  int
	Limit int
}

// DefaultPageQuery returns the default page (first page, 10 items)
func DefaultPageQuery() PageQuery {
	return PageQuery{Page: 1, Limit: 10}
}

// Normalize clamps page and limit to the accepted ranges
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return q
}
