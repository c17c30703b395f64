package postgres

import (
	"fmt"

	"wallet-ledger/internal/core/domain"
)

var walletOrderColumns = map[string]string{
	domain.SortCreatedAt: "created_at",
	domain.SortLabel:     "label",
	domain.SortBalance:   "balance",
}

var transactionOrderColumns = map[string]string{
	domain.SortCreatedAt: "t.created_at",
	domain.SortTxID:      "t.txid",
	domain.SortAmount:    "t.amount",
}

// orderBy renders an ORDER BY clause from a whitelisted column map.
// Unknown fields fall back to the default sort; idCol breaks ties so pages are stable.
func orderBy(s domain.Sort, columns map[string]string, idCol string) string {
	col, ok := columns[s.Field]
	if !ok {
		col = columns[domain.DefaultSort.Field]
		s = domain.DefaultSort
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, %s %s", col, dir, idCol, dir)
}
