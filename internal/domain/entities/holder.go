package entities

import (
	"math/big"
)

// Holding is an account balance for one token
type Holding struct {
	Account      string
	TokenAddress string
	Balance      *big.Int
}

// HolderClass buckets a holder by share of total supply
type HolderClass string

const (
	HolderWhale  HolderClass = "whale"
	HolderMedium HolderClass = "medium"
	HolderSmall  HolderClass = "small"
)

// CreatedToken is a token deployed by a creator, as reported by the indexer
type CreatedToken struct {
	Address   string
	Name      string
	Symbol    string
	CreatedAt int64
}
