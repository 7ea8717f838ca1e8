// Package memory is a process-local storage backend. It implements the same
// ports as the PostgreSQL adapter and is selected with storage.driver=memory.
//
// Transactions are serialized: Begin holds a store-wide lock until the
// transaction commits or rolls back, which stands in for row locks. Writes
// are staged on the transaction and published together on commit, so readers
// outside it only ever see committed state. Repositories hand out copies so
// callers never alias stored state.
package memory

import (
	"context"
	"errors"
	"sync"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds all in-memory state.
type Store struct {
	txSem chan struct{}

	mu         sync.RWMutex
	treasuries map[uuid.UUID]domain.Treasury
	games      map[uuid.UUID]domain.Game
	ledger     []domain.LedgerEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		txSem:      make(chan struct{}, 1),
		treasuries: make(map[uuid.UUID]domain.Treasury),
		games:      make(map[uuid.UUID]domain.Game),
	}
}

// txFor returns the store transaction behind tx.
func (s *Store) txFor(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

// HealthCheck implements ports.HealthChecker for the memory backend.
type HealthCheck struct{}

// NewHealthCheck creates a memory health checker. It is always healthy.
func NewHealthCheck() *HealthCheck {
	return &HealthCheck{}
}

// Ping always succeeds.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "memory"
}

func cloneGame(g domain.Game) *domain.Game {
	if g.Outcome != nil {
		o := *g.Outcome
		g.Outcome = &o
	}
	if g.SettledAt != nil {
		at := *g.SettledAt
		g.SettledAt = &at
	}
	return &g
}

// sameLedgerSlot reports whether a and b would both book the same game event.
// A game has one escrow entry and one settlement entry at most.
func sameLedgerSlot(a, b domain.LedgerEntry) bool {
	if a.GameID == nil || b.GameID == nil || *a.GameID != *b.GameID {
		return false
	}
	if a.Kind.IsSettlement() {
		return b.Kind.IsSettlement()
	}
	return a.Kind == b.Kind
}

func cloneEntry(e domain.LedgerEntry) domain.LedgerEntry {
	if e.GameID != nil {
		id := *e.GameID
		e.GameID = &id
	}
	return e
}
