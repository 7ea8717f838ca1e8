// Package postgres persists treasuries, games and the treasury ledger in
// PostgreSQL. Writers serialize on the treasury row via SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. Every transaction it starts waits
// at most lockTimeout for a row lock; zero waits indefinitely.
type Transactor struct {
	pool        Pool
	lockTimeout time.Duration
}

// NewTransactor creates a Transactor over pool.
func NewTransactor(pool Pool, lockTimeout time.Duration) *Transactor {
	return &Transactor{pool: pool, lockTimeout: lockTimeout}
}

// Begin starts a transaction and bounds how long it may queue behind another
// writer holding the same treasury.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin treasury tx: %w", err)
	}
	if t.lockTimeout <= 0 {
		return tx, nil
	}

	// SET takes no bind parameters.
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, stmt); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}
	return tx, nil
}
