package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
)

// ErrJournalEntryNotFound is returned when updating an unknown entry
var ErrJournalEntryNotFound = errors.New("journal entry not found")

// Ensure JournalRepo implements JournalRepository
var _ repositories.JournalRepository = (*JournalRepo)(nil)

// JournalRepo implements JournalRepository using PostgreSQL
type JournalRepo struct {
	db *sqlx.DB
}

// NewJournalRepo creates a new journal repository
func NewJournalRepo(db *sqlx.DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Insert records a newly submitted trade
func (r *JournalRepo) Insert(ctx context.Context, entry *entities.JournalEntry) error {
	query := `
		INSERT INTO trade_journal (
			id, tx_hash, direction, token_address, account,
			amount_in, min_amount_out, status, error, created_at, updated_at
		) VALUES (
			:id, :tx_hash, :direction, :token_address, :account,
			:amount_in, :min_amount_out, :status, :error, :created_at, :updated_at
		)
	`

	row := *entry
	row.TokenAddress = strings.ToLower(row.TokenAddress)
	row.Account = strings.ToLower(row.Account)

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return nil
}

// UpdateStatus updates the status of a journal entry.
// An empty txHash keeps the stored hash.
func (r *JournalRepo) UpdateStatus(ctx context.Context, id string, status entities.JournalStatus, txHash, errMsg string) error {
	query := `
		UPDATE trade_journal SET
			status = $2,
			tx_hash = COALESCE(NULLIF($3, ''), tx_hash),
			error = $4,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, txHash, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update journal entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrJournalEntryNotFound, id)
	}

	return nil
}

// ListByAccount retrieves the most recent entries for an account
func (r *JournalRepo) ListByAccount(ctx context.Context, account string, limit int) ([]entities.JournalEntry, error) {
	var entries []entities.JournalEntry
	query := `
		SELECT id, tx_hash, direction, token_address, account,
			amount_in::TEXT AS amount_in, min_amount_out::TEXT AS min_amount_out,
			status, error, created_at, updated_at
		FROM trade_journal
		WHERE account = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &entries, query, strings.ToLower(account), limit); err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	if entries == nil {
		entries = []entities.JournalEntry{}
	}
	return entries, nil
}
