package entities

import (
	"math/big"
	"time"
)

// Transfer represents an ERC-20 Transfer event
type Transfer struct {
	TxHash       string
	LogIndex     int
	BlockNumber  int64
	Timestamp    time.Time
	TokenAddress string
	FromAddress  string
	ToAddress    string
	Value        *big.Int
}

// ZeroAddress is the mint/burn counterparty of ERC-20 transfers
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsMint reports whether the transfer mints new supply
func (t Transfer) IsMint() bool {
	return t.FromAddress == ZeroAddress
}

// IsBurn reports whether the transfer burns supply
func (t Transfer) IsBurn() bool {
	return t.ToAddress == ZeroAddress
}
