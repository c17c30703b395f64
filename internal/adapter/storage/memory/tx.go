package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var errSQLUnsupported = errors.New("memory store does not execute SQL")

// Tx is a unit of work against a Store. Writes are staged and become visible
// to others only on Commit. Wallet locks and txid reservations taken through
// the repositories are released when the Tx ends.
//
// Tx satisfies pgx.Tx so it can flow through ports.DBTransactor; the SQL
// methods are not supported.
type Tx struct {
	store *Store

	mu       sync.Mutex
	closed   bool
	locks    map[uuid.UUID]chan struct{}
	reserved map[string]chan struct{}
	inserts  []domain.Transaction
	balances map[uuid.UUID]decimal.Decimal
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:    s,
		locks:    make(map[uuid.UUID]chan struct{}),
		reserved: make(map[string]chan struct{}),
		balances: make(map[uuid.UUID]decimal.Decimal),
	}
}

// asTx unwraps a pgx.Tx produced by Store.Begin.
func asTx(s *Store, tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, fmt.Errorf("memory: foreign transaction %T", tx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// Commit publishes staged writes and releases locks.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}

	t.store.mu.Lock()
	t.store.publish(t)
	t.releaseReservations()
	t.store.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards staged writes and releases locks. It returns
// pgx.ErrTxClosed after Commit or a previous Rollback, like pgx does.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}

	t.store.mu.Lock()
	t.releaseReservations()
	t.store.mu.Unlock()

	t.finish()
	return nil
}

// releaseReservations wakes inserters waiting on our txids. Caller holds store.mu.
func (t *Tx) releaseReservations() {
	for txid, ch := range t.reserved {
		delete(t.store.inflight, txid)
		close(ch)
	}
}

func (t *Tx) finish() {
	for _, sem := range t.locks {
		<-sem
	}
	t.closed = true
	t.locks = nil
	t.reserved = nil
	t.inserts = nil
	t.balances = nil
}

// holds reports whether the wallet lock is held. Caller holds t.mu.
func (t *Tx) holds(id uuid.UUID) bool {
	_, ok := t.locks[id]
	return ok
}

func (t *Tx) stagedSum(walletID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, txn := range t.inserts {
		if txn.WalletID == walletID {
			sum = sum.Add(txn.Amount)
		}
	}
	return sum
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("memory: nested transactions are not supported")
}

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errSQLUnsupported
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return errBatch{} }

func (t *Tx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errSQLUnsupported
}

func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errSQLUnsupported
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errSQLUnsupported
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

// Conn returns nil; there is no underlying connection.
func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errSQLUnsupported }

type errBatch struct{}

func (errBatch) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, errSQLUnsupported }
func (errBatch) Query() (pgx.Rows, error)         { return nil, errSQLUnsupported }
func (errBatch) QueryRow() pgx.Row                { return errRow{} }
func (errBatch) Close() error                     { return errSQLUnsupported }
