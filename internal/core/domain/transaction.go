package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable, signed ledger entry applied to exactly one wallet.
// TxID is the caller-supplied external id and is unique across all transactions.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	WalletID  uuid.UUID       `json:"wallet_id"`
	TxID      string          `json:"txid"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsCredit returns true if the transaction increases the wallet balance.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit returns true if the transaction decreases the wallet balance.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// WalletAggregate is the sum and count of all transactions of one wallet.
type WalletAggregate struct {
	Sum   decimal.Decimal
	Count int64
}
