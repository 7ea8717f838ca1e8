package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TreasuryRepository defines persistence operations for treasuries.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type TreasuryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, treasury *domain.Treasury) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Treasury, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Treasury, error)
	Update(ctx context.Context, tx pgx.Tx, treasury *domain.Treasury) error
}

// GameRepository defines persistence operations for games.
type GameRepository interface {
	Create(ctx context.Context, tx pgx.Tx, game *domain.Game) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Game, error)
	Update(ctx context.Context, tx pgx.Tx, game *domain.Game) error
}

// LedgerRepository defines persistence for the append-only treasury ledger.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	// Stats aggregates entries created at or after since (all entries when nil).
	Stats(ctx context.Context, treasuryID uuid.UUID, since *time.Time) (*TreasuryStats, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	TreasuryID uuid.UUID
	Kind       *domain.LedgerKind
	Page       int
	PageSize   int
}

// TreasuryStats holds aggregated ledger figures for the dashboard.
type TreasuryStats struct {
	GamesSettled   int64 `json:"games_settled"`
	HouseWins      int64 `json:"house_wins"`
	HouseLosses    int64 `json:"house_losses"`
	FeesCollected  int64 `json:"fees_collected"`  // Sum of settlement fee deltas
	SettlementNet  int64 `json:"settlement_net"`  // Net house result of settled games, fees excluded
	TotalFunded    int64 `json:"total_funded"`    // Initial funding plus top-ups
	TotalWithdrawn int64 `json:"total_withdrawn"` // Principal paid out to the operator
	TotalClaimed   int64 `json:"total_claimed"`   // Fees paid out to the operator
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
