package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"wallet-ledger/internal/adapter/storage/memory"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerFixture runs the engine against the in-process store so that the
// locking and rollback paths are real.
type ledgerFixture struct {
	ledger  *service.LedgerServiceImpl
	queries ports.QueryService
	wallets *memory.WalletRepo
	txns    *memory.TransactionRepo
}

func newLedgerFixture(t *testing.T, strategy string) *ledgerFixture {
	t.Helper()
	store := memory.NewStore()
	wallets := memory.NewWalletRepo(store)
	txns := memory.NewTransactionRepo(store)
	return &ledgerFixture{
		ledger: service.NewLedgerService(wallets, txns, store, nil, nil,
			service.LedgerOptions{BalanceStrategy: strategy}, zerolog.Nop()),
		queries: service.NewQueryService(wallets, txns, nil, 0, zerolog.Nop()),
		wallets: wallets,
		txns:    txns,
	}
}

func (f *ledgerFixture) newWallet(t *testing.T) uuid.UUID {
	t.Helper()
	w, err := f.ledger.CreateWallet(context.Background(), ports.CreateWalletRequest{})
	require.NoError(t, err)
	return w.ID
}

func (f *ledgerFixture) apply(walletID uuid.UUID, txid, amount string) error {
	_, err := f.ledger.ApplyTransaction(context.Background(), ports.ApplyTransactionRequest{
		WalletID: walletID,
		TxID:     txid,
		Amount:   decimal.RequireFromString(amount),
	})
	return err
}

func (f *ledgerFixture) audit(t *testing.T, walletID uuid.UUID) *domain.WalletAudit {
	t.Helper()
	a, err := f.queries.AuditWallet(context.Background(), walletID)
	require.NoError(t, err)
	return a
}

var strategies = []string{service.StrategyRecompute, service.StrategyIncrement}

func TestLedger_DepositWithdrawReject(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newLedgerFixture(t, strategy)
			w := f.newWallet(t)

			steps := []struct {
				amount  string
				wantErr string
				balance string
				count   int64
			}{
				{"100", "", "100", 1},
				{"-50", "", "50", 2},
				{"-100", "LED_003", "50", 2},
			}

			for i, step := range steps {
				err := f.apply(w, fmt.Sprintf("tx-%d", i), step.amount)
				if step.wantErr == "" {
					require.NoError(t, err)
				} else {
					var appErr *apperror.AppError
					require.ErrorAs(t, err, &appErr)
					assert.Equal(t, step.wantErr, appErr.Code)
				}

				a := f.audit(t, w)
				assert.True(t, decimal.RequireFromString(step.balance).Equal(a.StoredBalance), "step %d balance %s", i, a.StoredBalance)
				assert.Equal(t, step.count, a.TransactionCount, "step %d", i)
				assert.True(t, a.Consistent())
			}
		})
	}
}

func TestLedger_RejectedTxIDCanBeReused(t *testing.T) {
	f := newLedgerFixture(t, service.StrategyRecompute)
	w := f.newWallet(t)

	require.Error(t, f.apply(w, "retry-me", "-1"))
	require.NoError(t, f.apply(w, "retry-me", "1"))
}

func TestLedger_DuplicateTxIDAcrossWallets(t *testing.T) {
	f := newLedgerFixture(t, service.StrategyRecompute)
	a, b := f.newWallet(t), f.newWallet(t)

	require.NoError(t, f.apply(a, "shared", "10"))
	err := f.apply(b, "shared", "10")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
	assert.True(t, f.audit(t, b).StoredBalance.IsZero())
}

func TestLedger_UnknownWallet(t *testing.T) {
	f := newLedgerFixture(t, service.StrategyRecompute)

	err := f.apply(uuid.New(), "orphan", "10")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)

	_, total, err := f.queries.ListTransactions(context.Background(), ports.TransactionListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLedger_ConcurrentDepositsSameWallet(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newLedgerFixture(t, strategy)
			w := f.newWallet(t)

			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- f.apply(w, fmt.Sprintf("c-%d", i), "1.5")
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}

			a := f.audit(t, w)
			assert.True(t, decimal.RequireFromString("75").Equal(a.StoredBalance), "balance %s", a.StoredBalance)
			assert.Equal(t, int64(n), a.TransactionCount)
			assert.True(t, a.Consistent())
		})
	}
}

func TestLedger_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newLedgerFixture(t, service.StrategyRecompute)
	w := f.newWallet(t)
	require.NoError(t, f.apply(w, "seed", "10"))

	const n = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := f.apply(w, fmt.Sprintf("w-%d", i), "-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			var appErr *apperror.AppError
			if assert.ErrorAs(t, err, &appErr) {
				assert.Equal(t, "LED_003", appErr.Code)
			}
			rejected++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, n-10, rejected)
	a := f.audit(t, w)
	assert.True(t, a.StoredBalance.IsZero())
	assert.Equal(t, int64(11), a.TransactionCount)
}

func TestLedger_ConcurrentSameTxID(t *testing.T) {
	f := newLedgerFixture(t, service.StrategyRecompute)
	w := f.newWallet(t)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.apply(w, "once", "5")
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.True(t, decimal.RequireFromString("5").Equal(f.audit(t, w).StoredBalance))
}

func TestLedger_IndependentWallets(t *testing.T) {
	f := newLedgerFixture(t, service.StrategyIncrement)
	a, b := f.newWallet(t), f.newWallet(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.apply(a, fmt.Sprintf("a-%d", i), "2"))
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.apply(b, fmt.Sprintf("b-%d", i), "3"))
		}(i)
	}
	wg.Wait()

	assert.True(t, decimal.RequireFromString("40").Equal(f.audit(t, a).StoredBalance))
	assert.True(t, decimal.RequireFromString("60").Equal(f.audit(t, b).StoredBalance))
}

// TestLedger_StaleRegistryAfterStoreReset restarts the in-process store while
// Redis keeps the txids recorded by the previous one.
func TestLedger_StaleRegistryAfterStoreReset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	registry := redisStore.NewTxIDRegistry(client)

	newLedger := func() *service.LedgerServiceImpl {
		store := memory.NewStore()
		return service.NewLedgerService(memory.NewWalletRepo(store), memory.NewTransactionRepo(store), store,
			registry, nil, service.LedgerOptions{}, zerolog.Nop())
	}
	apply := func(l *service.LedgerServiceImpl, walletID uuid.UUID, txid string) error {
		_, err := l.ApplyTransaction(context.Background(), ports.ApplyTransactionRequest{
			WalletID: walletID, TxID: txid, Amount: decimal.RequireFromString("10"),
		})
		return err
	}

	before := newLedger()
	w, err := before.CreateWallet(context.Background(), ports.CreateWalletRequest{})
	require.NoError(t, err)
	require.NoError(t, apply(before, w.ID, "abc"))
	assertCode(t, apply(before, w.ID, "abc"), "LED_002")
	assert.True(t, mr.Exists("wlg:txid:abc"))

	after := newLedger()
	assertCode(t, apply(after, uuid.New(), "abc"), "LED_001")

	w2, err := after.CreateWallet(context.Background(), ports.CreateWalletRequest{})
	require.NoError(t, err)
	require.NoError(t, apply(after, w2.ID, "abc"), "a registry entry unknown to the store must not reject")
	assertCode(t, apply(after, w2.ID, "abc"), "LED_002")
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
