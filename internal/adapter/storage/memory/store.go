// Package memory is an embedded, process-local implementation of the ledger
// storage ports. Wallet locks, txid uniqueness and commit/rollback follow the
// same rules as the PostgreSQL adapter so the engine behaves identically on both.
package memory

import (
	"context"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds committed state shared by the memory repositories.
type Store struct {
	mu          sync.RWMutex
	wallets     map[uuid.UUID]domain.Wallet
	txns        map[uuid.UUID]domain.Transaction
	txids       map[string]uuid.UUID
	aggregates  map[uuid.UUID]domain.WalletAggregate
	locks       map[uuid.UUID]chan struct{}
	inflight    map[string]chan struct{}
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long GetByIDForUpdate waits for a wallet lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		wallets:    make(map[uuid.UUID]domain.Wallet),
		txns:       make(map[uuid.UUID]domain.Transaction),
		txids:      make(map[string]uuid.UUID),
		aggregates: make(map[uuid.UUID]domain.WalletAggregate),
		locks:      make(map[uuid.UUID]chan struct{}),
		inflight:   make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTx(s), nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

// acquire takes the wallet semaphore, honouring ctx and the lock timeout.
func (s *Store) acquire(ctx context.Context, sem chan struct{}) error {
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return domain.ErrLockTimeout
	}
}

// publish applies a committed unit of work. Caller holds s.mu.
func (s *Store) publish(t *Tx) {
	for _, txn := range t.inserts {
		s.txns[txn.ID] = txn
		s.txids[txn.TxID] = txn.ID
		agg := s.aggregates[txn.WalletID]
		agg.Sum = agg.Sum.Add(txn.Amount)
		agg.Count++
		s.aggregates[txn.WalletID] = agg
	}
	for id, balance := range t.balances {
		w := s.wallets[id]
		w.Balance = balance
		s.wallets[id] = w
	}
}
