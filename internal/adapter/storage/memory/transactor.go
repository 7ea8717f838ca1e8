package memory

import (
	"context"

	"house-treasury/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Transactor implements ports.DBTransactor over a Store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a new Transactor.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin waits for any running transaction to finish, then starts a new one.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case t.store.txSem <- struct{}{}:
		return &memTx{
			store:      t.store,
			treasuries: make(map[uuid.UUID]domain.Treasury),
			games:      make(map[uuid.UUID]domain.Game),
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// memTx is a pgx.Tx that stages writes until Commit publishes them under a
// single store lock. Rollback discards them. Only Commit and Rollback are
// meaningful; the SQL methods are never called by the memory repositories.
type memTx struct {
	store      *Store
	treasuries map[uuid.UUID]domain.Treasury
	games      map[uuid.UUID]domain.Game
	ledger     []domain.LedgerEntry
	done       bool
}

// treasury returns the transaction's view of a treasury.
func (t *memTx) treasury(id uuid.UUID) (domain.Treasury, bool) {
	if tr, ok := t.treasuries[id]; ok {
		return tr, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	tr, ok := t.store.treasuries[id]
	return tr, ok
}

// game returns the transaction's view of a game.
func (t *memTx) game(id uuid.UUID) (domain.Game, bool) {
	if g, ok := t.games[id]; ok {
		return g, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	g, ok := t.store.games[id]
	return g, ok
}

// hasLedgerSlot reports whether e's game event is already booked, committed
// or staged.
func (t *memTx) hasLedgerSlot(e domain.LedgerEntry) bool {
	for _, staged := range t.ledger {
		if sameLedgerSlot(staged, e) {
			return true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, existing := range t.store.ledger {
		if sameLedgerSlot(existing, e) {
			return true
		}
	}
	return false
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for id, tr := range t.treasuries {
		t.store.treasuries[id] = tr
	}
	for id, g := range t.games {
		t.store.games[id] = g
	}
	t.store.ledger = append(t.store.ledger, t.ledger...)
	t.store.mu.Unlock()
	t.finish()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.treasuries, t.games, t.ledger = nil, nil, nil
	t.done = true
	<-t.store.txSem
}

func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
