package dto

import (
	"github.com/shopspring/decimal"
)

// CreateWalletRequest is the request body for wallet creation. Any id or
// balance sent by the client is ignored.
type CreateWalletRequest struct {
	Label *string `json:"label,omitempty" binding:"omitempty,max=255" sanitize:"trim"`
}

// CreateTransactionRequest is the request body for posting a transaction.
type CreateTransactionRequest struct {
	WalletID string           `json:"wallet_id" binding:"required"`
	TxID     string           `json:"txid" binding:"required,max=255,txid"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
}

// WalletResponse is the wire form of a wallet. Decimals render as strings.
type WalletResponse struct {
	ID        string          `json:"id"`
	Label     *string         `json:"label"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt string          `json:"created_at"`
}

// WalletAuditResponse compares the stored balance with the transaction log.
type WalletAuditResponse struct {
	WalletID         string          `json:"wallet_id"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	LedgerBalance    decimal.Decimal `json:"ledger_balance"`
	TransactionCount int64           `json:"transaction_count"`
	Consistent       bool            `json:"consistent"`
}

// TransactionResponse is the wire form of a transaction.
type TransactionResponse struct {
	ID        string          `json:"id"`
	WalletID  string          `json:"wallet_id"`
	TxID      string          `json:"txid"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt string          `json:"created_at"`
}

// WalletListQuery holds the query parameters of GET /wallets.
type WalletListQuery struct {
	Label    string `form:"label"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// TransactionListQuery holds the query parameters of GET /transactions.
type TransactionListQuery struct {
	TxID        string `form:"txid"`
	WalletID    string `form:"wallet_id"`
	WalletLabel string `form:"wallet_label"`
	Sort        string `form:"sort"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}
