package handler

import (
	"errors"
	"io"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	ledger  ports.LedgerService
	queries ports.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerService, queries ports.QueryService) *WalletHandler {
	return &WalletHandler{ledger: ledger, queries: queries}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	// An empty body creates an unlabeled wallet.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.ledger.CreateWallet(c.Request.Context(), ports.CreateWalletRequest{Label: req.Label})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, apperror.ErrNotFound("Wallet"))
		return
	}

	wallet, err := h.queries.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// Audit handles GET /api/v1/wallets/:id/audit.
func (h *WalletHandler) Audit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, apperror.ErrNotFound("Wallet"))
		return
	}

	audit, err := h.queries.AuditWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAuditResponse(audit))
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	var q dto.WalletListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	sort, err := parseSort(q.Sort, domain.WalletSortFields)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, pageSize := domain.NormalizePage(q.Page, q.PageSize)
	wallets, total, err := h.queries.ListWallets(c.Request.Context(), ports.WalletListParams{
		Label:    optional(q.Label),
		Sort:     sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, toWalletResponse(&wallets[i]))
	}

	response.Paginated(c, items, total, page, pageSize)
}
