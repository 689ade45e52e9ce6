package entities

import (
	"time"
)

// JournalStatus is the lifecycle state of a submitted trade
type JournalStatus string

const (
	JournalPending JournalStatus = "pending"
	JournalSuccess JournalStatus = "success"
	JournalFailed  JournalStatus = "failed"
)

// JournalEntry records a trade submitted by this process
type JournalEntry struct {
	ID           string        `json:"id" db:"id"`
	TxHash       string        `json:"tx_hash,omitempty" db:"tx_hash"`
	Direction    string        `json:"direction" db:"direction"`
	TokenAddress string        `json:"token_address" db:"token_address"`
	Account      string        `json:"account" db:"account"`
	AmountIn     string        `json:"amount_in" db:"amount_in"`
	MinAmountOut string        `json:"min_amount_out" db:"min_amount_out"`
	Status       JournalStatus `json:"status" db:"status"`
	Error        string        `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}
