package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a balance derived from the transactions that reference it.
// The balance is owned by the ledger: it starts at zero and only changes
// when a transaction is applied.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	Label     *string         `json:"label"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewWallet builds a wallet with a fresh identity and a zero balance.
func NewWallet(label *string, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		Label:     label,
		Balance:   decimal.Zero,
		CreatedAt: now,
	}
}

// LabelValue returns the label or an empty string when unset.
func (w *Wallet) LabelValue() string {
	if w.Label == nil {
		return ""
	}
	return *w.Label
}

// WalletAudit compares the stored balance of a wallet with the sum of its
// transaction log.
type WalletAudit struct {
	WalletID         uuid.UUID       `json:"wallet_id"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	LedgerBalance    decimal.Decimal `json:"ledger_balance"`
	TransactionCount int64           `json:"transaction_count"`
}

// Consistent reports whether the stored balance matches the transaction log.
func (a *WalletAudit) Consistent() bool {
	return a.StoredBalance.Equal(a.LedgerBalance)
}
