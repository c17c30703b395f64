package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
// A txid collision is reported as domain.ErrDuplicateTxID and aborts tx.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_id, txid, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, t.ID, t.WalletID, t.TxID, t.Amount, t.CreatedAt)
	if err != nil {
		return translate("insert transaction", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, wallet_id, txid, amount, created_at FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.WalletID, &t.TxID, &t.Amount, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// ExistsByTxID reports whether a committed transaction carries txid.
func (r *TransactionRepo) ExistsByTxID(ctx context.Context, txid string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE txid = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, txid).Scan(&exists); err != nil {
		return false, fmt.Errorf("check txid exists: %w", err)
	}
	return exists, nil
}

// SumByWallet returns the sum of all amounts of a wallet as seen by tx,
// including rows inserted earlier in tx.
func (r *TransactionRepo) SumByWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE wallet_id = $1`

	var sum decimal.Decimal
	if err := tx.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, translate("sum wallet transactions", err)
	}
	return sum, nil
}

// AggregateByWallet returns the committed sum and count of a wallet's transactions.
func (r *TransactionRepo) AggregateByWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletAggregate, error) {
	query := `SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM transactions WHERE wallet_id = $1`

	agg := &domain.WalletAggregate{}
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&agg.Sum, &agg.Count); err != nil {
		return nil, fmt.Errorf("aggregate wallet transactions: %w", err)
	}
	return agg, nil
}

// List fetches transactions with filtering, ordering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.TxID != nil {
		conditions = append(conditions, fmt.Sprintf("t.txid = $%d", argIdx))
		args = append(args, *params.TxID)
		argIdx++
	}
	if params.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("t.wallet_id = $%d", argIdx))
		args = append(args, *params.WalletID)
		argIdx++
	}
	if params.WalletLabel != nil {
		conditions = append(conditions, fmt.Sprintf("w.label = $%d", argIdx))
		args = append(args, *params.WalletLabel)
		argIdx++
	}

	from := "FROM transactions t"
	if params.WalletLabel != nil {
		from += " JOIN wallets w ON w.id = t.wallet_id"
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", from, where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT t.id, t.wallet_id, t.txid, t.amount, t.created_at %s %s %s LIMIT $%d OFFSET $%d`,
		from, where, orderBy(params.Sort, transactionOrderColumns, "t.id"), argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, params.PageSize)
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(&t.ID, &t.WalletID, &t.TxID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}
