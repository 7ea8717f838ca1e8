package postgres

import (
	"context"
	"errors"
	"fmt"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const gameColumns = `id, treasury_id, player, stake, fee_bps, status, outcome, fee, payout, created_at, settled_at`

// GameRepo implements ports.GameRepository.
type GameRepo struct {
	pool Pool
}

// NewGameRepo creates a new GameRepo.
func NewGameRepo(pool Pool) *GameRepo {
	return &GameRepo{pool: pool}
}

// Create inserts a new game within a transaction.
func (r *GameRepo) Create(ctx context.Context, tx pgx.Tx, g *domain.Game) error {
	query := `INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		g.ID, g.TreasuryID, g.Player.String(), g.Stake, g.FeeBps, string(g.Status),
		outcomeArg(g.Outcome), g.Fee, g.Payout, g.CreatedAt, g.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// GetByID fetches a game by its UUID (without locking).
func (r *GameRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	g, err := scanGame(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get game by id: %w", err)
	}
	return g, nil
}

// GetByIDForUpdate fetches a game with pessimistic locking.
// This MUST be called within a transaction.
func (r *GameRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`

	g, err := scanGame(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get game for update: %w", err)
	}
	return g, nil
}

// Update persists the settlement fields of a game within a transaction.
func (r *GameRepo) Update(ctx context.Context, tx pgx.Tx, g *domain.Game) error {
	query := `UPDATE games SET status = $1, outcome = $2, fee = $3, payout = $4, settled_at = $5 WHERE id = $6`

	tag, err := tx.Exec(ctx, query, string(g.Status), outcomeArg(g.Outcome), g.Fee, g.Payout, g.SettledAt, g.ID)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game not found: %s", g.ID)
	}
	return nil
}

func outcomeArg(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

// scanGame scans a single row; a missing row yields (nil, nil).
func scanGame(row pgx.Row) (*domain.Game, error) {
	g := &domain.Game{}
	var player, status string
	var outcome *string
	err := row.Scan(
		&g.ID, &g.TreasuryID, &player, &g.Stake, &g.FeeBps, &status,
		&outcome, &g.Fee, &g.Payout, &g.CreatedAt, &g.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	g.Player = domain.Address(player)
	g.Status = domain.GameStatus(status)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		g.Outcome = &o
	}
	return g, nil
}
