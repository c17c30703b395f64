package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles transaction endpoints.
type TransactionHandler struct {
	ledger  ports.LedgerService
	queries ports.QueryService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledger ports.LedgerService, queries ports.QueryService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, queries: queries}
}

// Create handles POST /api/v1/transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("wallet_id must be a UUID"))
		return
	}

	txn, err := h.ledger.ApplyTransaction(c.Request.Context(), ports.ApplyTransactionRequest{
		WalletID: walletID,
		TxID:     req.TxID,
		Amount:   *req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, apperror.ErrNotFound("Transaction"))
		return
	}

	txn, err := h.queries.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransactionResponse(txn))
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	sort, err := parseSort(q.Sort, domain.TransactionSortFields)
	if err != nil {
		response.Error(c, err)
		return
	}

	params := ports.TransactionListParams{
		TxID:        optional(q.TxID),
		WalletLabel: optional(q.WalletLabel),
		Sort:        sort,
	}
	if raw := optional(q.WalletID); raw != nil {
		walletID, err := uuid.Parse(*raw)
		if err != nil {
			response.Error(c, apperror.Validation("wallet_id must be a UUID"))
			return
		}
		params.WalletID = &walletID
	}
	params.Page, params.PageSize = domain.NormalizePage(q.Page, q.PageSize)

	txns, total, err := h.queries.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.Paginated(c, items, total, params.Page, params.PageSize)
}
