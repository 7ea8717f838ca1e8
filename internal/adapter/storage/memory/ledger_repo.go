package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository in memory.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

// Create stages an entry within a transaction. A game gets at most one
// escrow entry and one settlement entry.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return err
	}
	if mt.hasLedgerSlot(*e) {
		return fmt.Errorf("game %s already has a %s ledger entry", *e.GameID, e.Kind)
	}
	mt.ledger = append(mt.ledger, cloneEntry(*e))
	return nil
}

// List returns a page of entries, newest first, with the total match count.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.store.mu.RLock()
	var result []domain.LedgerEntry
	for i := len(r.store.ledger) - 1; i >= 0; i-- {
		e := r.store.ledger[i]
		if e.TreasuryID != params.TreasuryID {
			continue
		}
		if params.Kind != nil && e.Kind != *params.Kind {
			continue
		}
		result = append(result, cloneEntry(e))
	}
	r.store.mu.RUnlock()

	// Collected newest-appended first; ties on CreatedAt keep that order.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(result) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// Stats aggregates the treasury's entries created at or after since.
func (r *LedgerRepo) Stats(ctx context.Context, treasuryID uuid.UUID, since *time.Time) (*ports.TreasuryStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &ports.TreasuryStats{}
	for _, e := range r.store.ledger {
		if e.TreasuryID != treasuryID {
			continue
		}
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		switch e.Kind {
		case domain.LedgerKindSettleHouseWin, domain.LedgerKindSettleHouseLoss:
			stats.GamesSettled++
			if e.Kind == domain.LedgerKindSettleHouseWin {
				stats.HouseWins++
			} else {
				stats.HouseLosses++
			}
			stats.FeesCollected += e.FeeDelta
			stats.SettlementNet += e.PrincipalDelta + e.EscrowDelta
		case domain.LedgerKindFund, domain.LedgerKindTopUp:
			stats.TotalFunded += e.PrincipalDelta
		case domain.LedgerKindWithdraw:
			stats.TotalWithdrawn -= e.PrincipalDelta
		case domain.LedgerKindClaimFees:
			stats.TotalClaimed -= e.FeeDelta
		}
	}
	return stats, nil
}
