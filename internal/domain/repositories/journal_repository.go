package repositories

import (
	"context"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// JournalRepository defines the interface for trade journal operations
type JournalRepository interface {
	// Insert records a newly submitted trade
	Insert(ctx context.Context, entry *entities.JournalEntry) error

	// UpdateStatus updates the status of a journal entry
	UpdateStatus(ctx context.Context, id string, status entities.JournalStatus, txHash, errMsg string) error

	// ListByAccount retrieves the most recent entries for an account
	ListByAccount(ctx context.Context, account string, limit int) ([]entities.JournalEntry, error)
}
