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

const walletColumns = `id, label, balance, created_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, label, balance, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, w.ID, w.Label, w.Balance, w.CreatedAt)
	if err != nil {
		return translate("insert wallet", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate("get wallet by id", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID and holds its row lock until tx ends.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate("get wallet for update by id", err)
	}
	return w, nil
}

// UpdateBalance sets a wallet's balance within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return translate("update wallet balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// List fetches wallets with an optional exact label filter, ordering and pagination.
func (r *WalletRepo) List(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Label != nil {
		conditions = append(conditions, fmt.Sprintf("label = $%d", argIdx))
		args = append(args, *params.Label)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM wallets %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallets: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM wallets %s %s LIMIT $%d OFFSET $%d`,
		walletColumns, where, orderBy(params.Sort, walletOrderColumns, "id"), argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := make([]domain.Wallet, 0, params.PageSize)
	for rows.Next() {
		w := domain.Wallet{}
		if err := rows.Scan(&w.ID, &w.Label, &w.Balance, &w.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, total, nil
}

// scanWallet scans a single row. A missing row yields nil, nil.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.Label, &w.Balance, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
