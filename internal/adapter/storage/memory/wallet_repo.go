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

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	store *Store
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.wallets[w.ID]; ok {
		return fmt.Errorf("insert wallet: duplicate id %s", w.ID)
	}
	r.store.wallets[w.ID] = *w
	r.store.locks[w.ID] = make(chan struct{}, 1)
	return nil
}

// GetByID returns the committed wallet or nil.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// GetByIDForUpdate blocks until tx holds the wallet lock, then returns the
// wallet as tx sees it. A missing wallet yields nil, nil without locking.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	sem, ok := r.store.locks[id]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	t.mu.Lock()
	held := t.holds(id)
	t.mu.Unlock()

	if !held {
		if err := r.store.acquire(ctx, sem); err != nil {
			return nil, fmt.Errorf("get wallet for update by id: %w", err)
		}
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			<-sem
			return nil, pgx.ErrTxClosed
		}
		t.locks[id] = sem
		t.mu.Unlock()
	}

	r.store.mu.RLock()
	w := r.store.wallets[id]
	r.store.mu.RUnlock()

	t.mu.Lock()
	if b, ok := t.balances[id]; ok {
		w.Balance = b
	}
	t.mu.Unlock()
	return &w, nil
}

// UpdateBalance stages a new balance on tx.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, ok := r.store.wallets[walletID]
	r.store.mu.RUnlock()
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.holds(walletID) {
		return fmt.Errorf("update wallet balance: wallet %s is not locked by this transaction", walletID)
	}
	t.balances[walletID] = balance
	return nil
}

// List filters, sorts and pages committed wallets.
func (r *WalletRepo) List(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	r.store.mu.RLock()
	result := make([]domain.Wallet, 0, len(r.store.wallets))
	for _, w := range r.store.wallets {
		if params.Label != nil && (w.Label == nil || *w.Label != *params.Label) {
			continue
		}
		result = append(result, w)
	}
	r.store.mu.RUnlock()

	sortWallets(result, params.Sort)
	return paginate(result, params.Offset(), params.PageSize), int64(len(result)), nil
}
