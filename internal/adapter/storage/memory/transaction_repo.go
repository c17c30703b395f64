package memory

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	store *Store
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Create stages t on tx after reserving its txid. If another open unit of
// work holds the same txid, Create waits for it to finish: a commit makes this
// insert a duplicate, a rollback lets it proceed.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	for {
		t.mu.Lock()
		if _, mine := t.reserved[txn.TxID]; mine {
			t.mu.Unlock()
			return fmt.Errorf("insert transaction: %w", domain.ErrDuplicateTxID)
		}

		r.store.mu.Lock()
		if _, ok := r.store.wallets[txn.WalletID]; !ok {
			r.store.mu.Unlock()
			t.mu.Unlock()
			return fmt.Errorf("insert transaction: wallet %s does not exist", txn.WalletID)
		}
		if _, ok := r.store.txids[txn.TxID]; ok {
			r.store.mu.Unlock()
			t.mu.Unlock()
			return fmt.Errorf("insert transaction: %w", domain.ErrDuplicateTxID)
		}
		wait, busy := r.store.inflight[txn.TxID]
		if !busy {
			ch := make(chan struct{})
			r.store.inflight[txn.TxID] = ch
			t.reserved[txn.TxID] = ch
			t.inserts = append(t.inserts, *txn)
			r.store.mu.Unlock()
			t.mu.Unlock()
			return nil
		}
		r.store.mu.Unlock()
		t.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return fmt.Errorf("insert transaction: %w", ctx.Err())
		}
	}
}

// GetByID returns a committed transaction or nil.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	txn, ok := r.store.txns[id]
	if !ok {
		return nil, nil
	}
	return &txn, nil
}

// ExistsByTxID reports whether a committed transaction carries txid. Staged
// and in-flight txids are not visible.
func (r *TransactionRepo) ExistsByTxID(ctx context.Context, txid string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.txids[txid]
	return ok, nil
}

// SumByWallet returns committed plus staged amounts of the wallet.
func (r *TransactionRepo) SumByWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return decimal.Zero, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	r.store.mu.RLock()
	committed := r.store.aggregates[walletID].Sum
	r.store.mu.RUnlock()

	return committed.Add(t.stagedSum(walletID)), nil
}

// AggregateByWallet returns the committed sum and count of the wallet.
func (r *TransactionRepo) AggregateByWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletAggregate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	agg := r.store.aggregates[walletID]
	return &agg, nil
}

// List filters, sorts and pages committed transactions.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.store.mu.RLock()
	result := make([]domain.Transaction, 0)
	for _, txn := range r.store.txns {
		if params.TxID != nil && txn.TxID != *params.TxID {
			continue
		}
		if params.WalletID != nil && txn.WalletID != *params.WalletID {
			continue
		}
		if params.WalletLabel != nil {
			w := r.store.wallets[txn.WalletID]
			if w.Label == nil || *w.Label != *params.WalletLabel {
				continue
			}
		}
		result = append(result, txn)
	}
	r.store.mu.RUnlock()

	sortTransactions(result, params.Sort)
	return paginate(result, params.Offset(), params.PageSize), int64(len(result)), nil
}
