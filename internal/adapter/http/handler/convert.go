package handler

import (
	"strings"
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		Label:     w.Label,
		Balance:   w.Balance,
		CreatedAt: formatTime(w.CreatedAt),
	}
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:        t.ID.String(),
		WalletID:  t.WalletID.String(),
		TxID:      t.TxID,
		Amount:    t.Amount,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

func toAuditResponse(a *domain.WalletAudit) dto.WalletAuditResponse {
	return dto.WalletAuditResponse{
		WalletID:         a.WalletID.String(),
		StoredBalance:    a.StoredBalance,
		LedgerBalance:    a.LedgerBalance,
		TransactionCount: a.TransactionCount,
		Consistent:       a.Consistent(),
	}
}

// pathID parses the :id path parameter. A malformed id cannot name an
// existing resource, so it is reported as not found.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// parseSort validates the sort query parameter against allowed fields.
func parseSort(raw string, allowed []string) (domain.Sort, error) {
	s, err := domain.ParseSort(raw, allowed)
	if err != nil {
		return domain.Sort{}, apperror.Validation(err.Error())
	}
	return s, nil
}

// optional returns nil for an empty (or blank) query value.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
