package postgres

import (
	"context"
	"errors"
	"fmt"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const treasuryColumns = `id, operator, balance, escrowed, fee_balance, min_stake, max_stake, created_at, updated_at`

// TreasuryRepo implements ports.TreasuryRepository.
type TreasuryRepo struct {
	pool Pool
}

// NewTreasuryRepo creates a new TreasuryRepo.
func NewTreasuryRepo(pool Pool) *TreasuryRepo {
	return &TreasuryRepo{pool: pool}
}

// Create inserts a new treasury within a transaction.
func (r *TreasuryRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Treasury) error {
	query := `INSERT INTO treasuries (` + treasuryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Operator.String(), t.Balance, t.Escrowed, t.FeeBalance,
		t.MinStake, t.MaxStake, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert treasury: %w", err)
	}
	return nil
}

// GetByID fetches a treasury by its UUID (without locking).
func (r *TreasuryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasuries WHERE id = $1`

	t, err := scanTreasury(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get treasury by id: %w", err)
	}
	return t, nil
}

// GetByIDForUpdate fetches a treasury with pessimistic locking.
// This MUST be called within a transaction.
func (r *TreasuryRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasuries WHERE id = $1 FOR UPDATE`

	t, err := scanTreasury(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get treasury for update: %w", err)
	}
	return t, nil
}

// Update persists balances, escrow and stake bounds within a transaction.
func (r *TreasuryRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Treasury) error {
	query := `UPDATE treasuries
		SET balance = $1, escrowed = $2, fee_balance = $3, min_stake = $4, max_stake = $5, updated_at = $6
		WHERE id = $7`

	tag, err := tx.Exec(ctx, query, t.Balance, t.Escrowed, t.FeeBalance, t.MinStake, t.MaxStake, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update treasury: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("treasury not found: %s", t.ID)
	}
	return nil
}

// scanTreasury scans a single row; a missing row yields (nil, nil).
func scanTreasury(row pgx.Row) (*domain.Treasury, error) {
	t := &domain.Treasury{}
	var operator string
	err := row.Scan(
		&t.ID, &operator, &t.Balance, &t.Escrowed, &t.FeeBalance,
		&t.MinStake, &t.MaxStake, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Operator = domain.Address(operator)
	return t, nil
}
