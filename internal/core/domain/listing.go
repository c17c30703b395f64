package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sortable columns for wallet and transaction listings.
const (
	SortCreatedAt = "created_at"
	SortLabel     = "label"
	SortBalance   = "balance"
	SortTxID      = "txid"
	SortAmount    = "amount"
)

var (
	WalletSortFields      = []string{SortCreatedAt, SortLabel, SortBalance}
	TransactionSortFields = []string{SortCreatedAt, SortTxID, SortAmount}

	// Newest first.
	DefaultSort = Sort{Field: SortCreatedAt, Desc: true}
)

// Page sizes for list endpoints.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage clamps page and pageSize to usable values.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// ErrInvalidSort is returned when a sort key is not one of the allowed fields.
var ErrInvalidSort = errors.New("invalid sort field")

// Sort is a single ordering key. A leading "-" in its text form means descending.
type Sort struct {
	Field string
	Desc  bool
}

// String renders the sort in its query-string form, e.g. "-amount".
func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// ParseSort parses "field" or "-field" and checks it against allowed.
// An empty string yields DefaultSort.
func ParseSort(raw string, allowed []string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}
	s := Sort{Field: raw}
	if strings.HasPrefix(raw, "-") {
		s = Sort{Field: raw[1:], Desc: true}
	}
	for _, f := range allowed {
		if f == s.Field {
			return s, nil
		}
	}
	return Sort{}, fmt.Errorf("%w %q: must be one of %s", ErrInvalidSort, s.Field, strings.Join(allowed, ", "))
}
