package memory

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store   *Store
	wallets *WalletRepo
	txns    *TransactionRepo
}

func newFixture(opts ...Option) *fixture {
	s := NewStore(opts...)
	return &fixture{store: s, wallets: NewWalletRepo(s), txns: NewTransactionRepo(s)}
}

func (f *fixture) wallet(t *testing.T, label *string) *domain.Wallet {
	t.Helper()
	w := domain.NewWallet(label, time.Now().UTC())
	require.NoError(t, f.wallets.Create(context.Background(), w))
	return w
}

func (f *fixture) apply(t *testing.T, walletID uuid.UUID, txid, amount string) {
	t.Helper()
	ctx := context.Background()
	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)

	_, err = f.wallets.GetByIDForUpdate(ctx, tx, walletID)
	require.NoError(t, err)
	txn := &domain.Transaction{ID: uuid.New(), WalletID: walletID, TxID: txid, Amount: dec(amount), CreatedAt: time.Now().UTC()}
	require.NoError(t, f.txns.Create(ctx, tx, txn))
	sum, err := f.txns.SumByWallet(ctx, tx, walletID)
	require.NoError(t, err)
	require.NoError(t, f.wallets.UpdateBalance(ctx, tx, walletID, sum))
	require.NoError(t, tx.Commit(ctx))
}

func TestStore_CommitPublishes(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)

	f.apply(t, w.ID, "a", "100")
	f.apply(t, w.ID, "b", "-40.5")

	got, err := f.wallets.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, dec("59.5").Equal(got.Balance))

	agg, err := f.txns.AggregateByWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Count)
	assert.True(t, dec("59.5").Equal(agg.Sum))
}

func TestStore_RollbackDiscards(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)
	ctx := context.Background()

	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)
	_, err = f.wallets.GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	require.NoError(t, f.txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), WalletID: w.ID, TxID: "x", Amount: dec("5")}))
	require.NoError(t, f.wallets.UpdateBalance(ctx, tx, w.ID, dec("5")))

	staged, err := f.wallets.GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(staged.Balance), "own staged balance is visible")

	require.NoError(t, tx.Rollback(ctx))

	got, _ := f.wallets.GetByID(ctx, w.ID)
	assert.True(t, got.Balance.IsZero())
	list, total, err := f.txns.List(ctx, ports.TransactionListParams{TxID: strPtr("x"), Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	// The txid is free again.
	f.apply(t, w.ID, "x", "1")
}

func TestStore_TxClosedAfterCommit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)

	_, err = f.wallets.GetByIDForUpdate(ctx, tx, uuid.New())
	assert.ErrorIs(t, err, pgx.ErrTxClosed)
}

func TestStore_GetByIDForUpdate_Missing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tx, _ := f.store.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	w, err := f.wallets.GetByIDForUpdate(ctx, tx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, w)
}

func TestStore_UpdateBalanceRequiresLock(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)
	ctx := context.Background()
	tx, _ := f.store.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	err := f.wallets.UpdateBalance(ctx, tx, w.ID, dec("1"))
	assert.ErrorContains(t, err, "not locked")
}

func TestStore_WalletLockSerializes(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)
	ctx := context.Background()

	tx1, _ := f.store.Begin(ctx)
	_, err := f.wallets.GetByIDForUpdate(ctx, tx1, w.ID)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		tx2, _ := f.store.Begin(ctx)
		_, _ = f.wallets.GetByIDForUpdate(ctx, tx2, w.ID)
		close(acquired)
		_ = tx2.Rollback(ctx)
	}()

	select {
	case <-acquired:
		t.Fatal("second unit of work acquired a held wallet lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, tx1.Commit(ctx))

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released on commit")
	}
}

func TestStore_DifferentWalletsDoNotBlock(t *testing.T) {
	f := newFixture(WithLockTimeout(20 * time.Millisecond))
	a := f.wallet(t, nil)
	b := f.wallet(t, nil)
	ctx := context.Background()

	tx1, _ := f.store.Begin(ctx)
	defer tx1.Rollback(ctx) //nolint:errcheck
	_, err := f.wallets.GetByIDForUpdate(ctx, tx1, a.ID)
	require.NoError(t, err)

	tx2, _ := f.store.Begin(ctx)
	defer tx2.Rollback(ctx) //nolint:errcheck
	_, err = f.wallets.GetByIDForUpdate(ctx, tx2, b.ID)
	assert.NoError(t, err)
}

func TestStore_LockTimeout(t *testing.T) {
	f := newFixture(WithLockTimeout(20 * time.Millisecond))
	w := f.wallet(t, nil)
	ctx := context.Background()

	tx1, _ := f.store.Begin(ctx)
	defer tx1.Rollback(ctx) //nolint:errcheck
	_, err := f.wallets.GetByIDForUpdate(ctx, tx1, w.ID)
	require.NoError(t, err)

	tx2, _ := f.store.Begin(ctx)
	defer tx2.Rollback(ctx) //nolint:errcheck
	_, err = f.wallets.GetByIDForUpdate(ctx, tx2, w.ID)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestStore_LockWaitHonoursContext(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)

	tx1, _ := f.store.Begin(context.Background())
	defer tx1.Rollback(context.Background()) //nolint:errcheck
	_, err := f.wallets.GetByIDForUpdate(context.Background(), tx1, w.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	tx2, _ := f.store.Begin(context.Background())
	defer tx2.Rollback(context.Background()) //nolint:errcheck
	_, err = f.wallets.GetByIDForUpdate(ctx, tx2, w.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_DuplicateTxIDCommitted(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)
	f.apply(t, w.ID, "dup", "1")

	ctx := context.Background()
	tx, _ := f.store.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck
	err := f.txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), WalletID: w.ID, TxID: "dup", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrDuplicateTxID)
}

func TestStore_ExistsByTxIDSeesCommittedOnly(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)
	ctx := context.Background()

	exists, err := f.txns.ExistsByTxID(ctx, "later")
	require.NoError(t, err)
	assert.False(t, exists)

	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)
	_, err = f.wallets.GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	require.NoError(t, f.txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), WalletID: w.ID, TxID: "later", Amount: dec("1")}))

	exists, err = f.txns.ExistsByTxID(ctx, "later")
	require.NoError(t, err)
	assert.False(t, exists, "staged txids are not visible")

	require.NoError(t, tx.Commit(ctx))
	exists, err = f.txns.ExistsByTxID(ctx, "later")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_SendBatchYieldsErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	br := tx.SendBatch(ctx, &pgx.Batch{})
	require.NotNil(t, br)

	_, err = br.Exec()
	assert.Error(t, err)
	_, err = br.Query()
	assert.Error(t, err)
	assert.Error(t, br.QueryRow().Scan())
	assert.Error(t, br.Close())
}

func TestStore_InFlightTxIDWaitsForOutcome(t *testing.T) {
	tests := []struct {
		name      string
		commit    bool
		wantDupes bool
	}{
		{"first commits", true, true},
		{"first rolls back", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			a := f.wallet(t, nil)
			b := f.wallet(t, nil)
			ctx := context.Background()

			tx1, _ := f.store.Begin(ctx)
			require.NoError(t, f.txns.Create(ctx, tx1, &domain.Transaction{ID: uuid.New(), WalletID: a.ID, TxID: "same", Amount: dec("1")}))

			result := make(chan error, 1)
			go func() {
				tx2, _ := f.store.Begin(ctx)
				defer tx2.Rollback(ctx) //nolint:errcheck
				result <- f.txns.Create(ctx, tx2, &domain.Transaction{ID: uuid.New(), WalletID: b.ID, TxID: "same", Amount: dec("1")})
			}()

			select {
			case <-result:
				t.Fatal("second insert did not wait for the in-flight txid")
			case <-time.After(50 * time.Millisecond):
			}

			if tt.commit {
				require.NoError(t, tx1.Commit(ctx))
			} else {
				require.NoError(t, tx1.Rollback(ctx))
			}

			err := <-result
			if tt.wantDupes {
				assert.ErrorIs(t, err, domain.ErrDuplicateTxID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_SameTxIDTwiceInOneUnit(t *testing.T) {
	f := newFixture()
	w := f.wallet(t, nil)
	ctx := context.Background()
	tx, _ := f.store.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	require.NoError(t, f.txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), WalletID: w.ID, TxID: "t", Amount: dec("1")}))
	err := f.txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), WalletID: w.ID, TxID: "t", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrDuplicateTxID)
}

func TestStore_CreateRejectsUnknownWallet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tx, _ := f.store.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	err := f.txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), WalletID: uuid.New(), TxID: "t", Amount: dec("1")})
	assert.ErrorContains(t, err, "does not exist")
}

func TestStore_ForeignTx(t *testing.T) {
	f := newFixture()
	other := NewStore()
	ctx := context.Background()
	tx, _ := other.Begin(ctx)

	_, err := f.txns.SumByWallet(ctx, tx, uuid.New())
	assert.ErrorContains(t, err, "foreign transaction")
}

func TestStore_Health(t *testing.T) {
	s := NewStore()
	assert.Equal(t, "memory", s.Name())
	assert.NoError(t, s.Ping(context.Background()))
}
