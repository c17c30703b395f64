package ports

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxIDRegistry remembers committed txids so known duplicates can be refused
// before a unit of work is opened. It is advisory: the store's unique
// constraint remains the source of truth.
type TxIDRegistry interface {
	Seen(ctx context.Context, txid string) (bool, error)
	Remember(ctx context.Context, txid string, ttl time.Duration) error
}

// WalletCache holds short-lived wallet snapshots for reads.
type WalletCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) // nil on miss
	Set(ctx context.Context, wallet *domain.Wallet, ttl time.Duration) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the only writer of wallets and transactions.
type LedgerService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	ApplyTransaction(ctx context.Context, req ApplyTransactionRequest) (*domain.Transaction, error)
}

// CreateWalletRequest holds validated input for wallet creation.
// Identity and balance are not client settable.
type CreateWalletRequest struct {
	Label *string
}

// ApplyTransactionRequest holds validated input for applying a transaction.
type ApplyTransactionRequest struct {
	WalletID uuid.UUID
	TxID     string
	Amount   decimal.Decimal
}

// QueryService serves read-only views over wallets and transactions.
type QueryService interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListWallets(ctx context.Context, params WalletListParams) ([]domain.Wallet, int64, error)
	AuditWallet(ctx context.Context, id uuid.UUID) (*domain.WalletAudit, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}
