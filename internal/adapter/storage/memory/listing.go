package memory

import (
	"bytes"
	"sort"
	"strings"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// sortWallets orders wallets like the SQL adapter: the requested key, then id.
// NULL labels sort after every label ascending, as in PostgreSQL.
func sortWallets(ws []domain.Wallet, s domain.Sort) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		var c int
		switch s.Field {
		case domain.SortLabel:
			c = compareLabels(a.Label, b.Label)
		case domain.SortBalance:
			c = a.Balance.Cmp(b.Balance)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return less(c, a.ID, b.ID, s.Desc)
	})
}

func sortTransactions(ts []domain.Transaction, s domain.Sort) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		var c int
		switch s.Field {
		case domain.SortTxID:
			c = strings.Compare(a.TxID, b.TxID)
		case domain.SortAmount:
			c = a.Amount.Cmp(b.Amount)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return less(c, a.ID, b.ID, s.Desc)
	})
}

func less(c int, idA, idB uuid.UUID, desc bool) bool {
	if c == 0 {
		c = bytes.Compare(idA[:], idB[:])
	}
	if desc {
		return c > 0
	}
	return c < 0
}

func compareLabels(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return strings.Compare(*a, *b)
	}
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
