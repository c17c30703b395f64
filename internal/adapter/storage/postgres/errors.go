package postgres

import (
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const txidConstraint = "transactions_txid_key"

// translate wraps err with op and, for the constraint and lock failures the
// ledger reacts to, with the matching domain sentinel.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if pgErr.ConstraintName == txidConstraint {
				return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicateTxID, err)
			}
		case pgerrcode.LockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrLockTimeout, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
