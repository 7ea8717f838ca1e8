package memory

import (
	"context"
	"fmt"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TreasuryRepo implements ports.TreasuryRepository in memory.
type TreasuryRepo struct {
	store *Store
}

// NewTreasuryRepo creates a new TreasuryRepo.
func NewTreasuryRepo(store *Store) *TreasuryRepo {
	return &TreasuryRepo{store: store}
}

// Create stages a new treasury within a transaction.
func (r *TreasuryRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Treasury) error {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return err
	}
	if _, ok := mt.treasury(t.ID); ok {
		return fmt.Errorf("treasury %s already exists", t.ID)
	}
	mt.treasuries[t.ID] = *t
	return nil
}

// GetByID fetches a committed treasury. Returns nil, nil when absent.
func (r *TreasuryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Treasury, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.treasuries[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// GetByIDForUpdate fetches a treasury as the transaction sees it. The
// transaction already excludes every other writer.
func (r *TreasuryRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Treasury, error) {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return nil, err
	}
	t, ok := mt.treasury(id)
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// Update stages a replacement for the stored treasury.
func (r *TreasuryRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Treasury) error {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return err
	}
	if _, ok := mt.treasury(t.ID); !ok {
		return fmt.Errorf("treasury not found")
	}
	mt.treasuries[t.ID] = *t
	return nil
}
