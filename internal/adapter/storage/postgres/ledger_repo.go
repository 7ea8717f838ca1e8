package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, treasury_id, game_id, kind, actor, principal_delta, escrow_delta, fee_delta,
		balance_after, escrow_after, fee_balance_after, created_at`

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends a ledger entry within a transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.TreasuryID, e.GameID, string(e.Kind), e.Actor.String(),
		e.PrincipalDelta, e.EscrowDelta, e.FeeDelta,
		e.BalanceAfter, e.EscrowAfter, e.FeeBalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first, with the total match count.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("treasury_id = $%d", argIdx))
	args = append(args, params.TreasuryID)
	argIdx++

	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, string(*params.Kind))
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		ledgerColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var kind, actor string
		err := rows.Scan(
			&e.ID, &e.TreasuryID, &e.GameID, &kind, &actor,
			&e.PrincipalDelta, &e.EscrowDelta, &e.FeeDelta,
			&e.BalanceAfter, &e.EscrowAfter, &e.FeeBalanceAfter, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = domain.LedgerKind(kind)
		e.Actor = domain.Address(actor)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, total, nil
}

// Stats aggregates the treasury's ledger, optionally from since onwards.
func (r *LedgerRepo) Stats(ctx context.Context, treasuryID uuid.UUID, since *time.Time) (*ports.TreasuryStats, error) {
	args := []any{treasuryID}
	condition := "treasury_id = $1"
	if since != nil {
		condition += " AND created_at >= $2"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) FILTER (WHERE kind IN ('SETTLE_HOUSE_WIN', 'SETTLE_HOUSE_LOSS')) AS settled,
		COUNT(*) FILTER (WHERE kind = 'SETTLE_HOUSE_WIN') AS house_wins,
		COUNT(*) FILTER (WHERE kind = 'SETTLE_HOUSE_LOSS') AS house_losses,
		COALESCE(SUM(fee_delta) FILTER (WHERE kind IN ('SETTLE_HOUSE_WIN', 'SETTLE_HOUSE_LOSS')), 0) AS fees,
		COALESCE(SUM(principal_delta + escrow_delta) FILTER (WHERE kind IN ('SETTLE_HOUSE_WIN', 'SETTLE_HOUSE_LOSS')), 0) AS net,
		COALESCE(SUM(principal_delta) FILTER (WHERE kind IN ('FUND', 'TOPUP')), 0) AS funded,
		COALESCE(-SUM(principal_delta) FILTER (WHERE kind = 'WITHDRAW'), 0) AS withdrawn,
		COALESCE(-SUM(fee_delta) FILTER (WHERE kind = 'CLAIM_FEES'), 0) AS claimed
		FROM ledger_entries WHERE %s`, condition)

	stats := &ports.TreasuryStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.GamesSettled, &stats.HouseWins, &stats.HouseLosses,
		&stats.FeesCollected, &stats.SettlementNet,
		&stats.TotalFunded, &stats.TotalWithdrawn, &stats.TotalClaimed,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	return stats, nil
}
