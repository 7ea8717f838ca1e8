package memory

import (
	"context"
	"fmt"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GameRepo implements ports.GameRepository in memory.
type GameRepo struct {
	store *Store
}

// NewGameRepo creates a new GameRepo.
func NewGameRepo(store *Store) *GameRepo {
	return &GameRepo{store: store}
}

// Create stages a new game within a transaction.
func (r *GameRepo) Create(ctx context.Context, tx pgx.Tx, g *domain.Game) error {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return err
	}
	if _, ok := mt.treasury(g.TreasuryID); !ok {
		return fmt.Errorf("treasury %s does not exist", g.TreasuryID)
	}
	if _, ok := mt.game(g.ID); ok {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	mt.games[g.ID] = *cloneGame(*g)
	return nil
}

// GetByID fetches a committed game. Returns nil, nil when absent.
func (r *GameRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	g, ok := r.store.games[id]
	if !ok {
		return nil, nil
	}
	return cloneGame(g), nil
}

// GetByIDForUpdate fetches a game as the transaction sees it.
func (r *GameRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Game, error) {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return nil, err
	}
	g, ok := mt.game(id)
	if !ok {
		return nil, nil
	}
	return cloneGame(g), nil
}

// Update stages a replacement for the stored game.
func (r *GameRepo) Update(ctx context.Context, tx pgx.Tx, g *domain.Game) error {
	mt, err := r.store.txFor(tx)
	if err != nil {
		return err
	}
	if _, ok := mt.game(g.ID); !ok {
		return fmt.Errorf("game not found")
	}
	mt.games[g.ID] = *cloneGame(*g)
	return nil
}
