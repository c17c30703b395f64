package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

import (
	"context"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the ledger unit of work.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// GetByIDForUpdate locks the wallet until tx ends. Returns nil, nil if missing.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
	List(ctx context.Context, params WalletListParams) ([]domain.Wallet, int64, error)
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	// Create inserts t inside tx. A txid collision returns domain.ErrDuplicateTxID.
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// ExistsByTxID reports whether a committed transaction carries txid.
	ExistsByTxID(ctx context.Context, txid string) (bool, error)
	// SumByWallet sums amounts visible to tx, including rows tx inserted.
	SumByWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error)
	AggregateByWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletAggregate, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// WalletListParams holds filter, ordering and pagination for listing wallets.
type WalletListParams struct {
	Label    *string
	Sort     domain.Sort
	Page     int
	PageSize int
}

// TransactionListParams holds filter, ordering and pagination for listing transactions.
type TransactionListParams struct {
	TxID        *string
	WalletID    *uuid.UUID
	WalletLabel *string
	Sort        domain.Sort
	Page        int
	PageSize    int
}

// Offset returns the number of rows to skip for the requested page.
func (p WalletListParams) Offset() int {
	return offset(p.Page, p.PageSize)
}

// Offset returns the number of rows to skip for the requested page.
func (p TransactionListParams) Offset() int {
	return offset(p.Page, p.PageSize)
}

func offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// DBTransactor opens ledger units of work.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
