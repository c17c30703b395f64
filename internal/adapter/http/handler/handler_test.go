package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerDeps struct {
	ledger  *mocks.MockLedgerService
	queries *mocks.MockQueryService
	wallets *WalletHandler
	txns    *TransactionHandler
}

func setupHandlers(t *testing.T) *handlerDeps {
	ctrl := gomock.NewController(t)
	d := &handlerDeps{
		ledger:  mocks.NewMockLedgerService(ctrl),
		queries: mocks.NewMockQueryService(ctrl),
	}
	d.wallets = NewWalletHandler(d.ledger, d.queries)
	d.txns = NewTransactionHandler(d.ledger, d.queries)
	return d
}

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "missing data envelope: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	d := setupHandlers(t)
	label := "savings"
	walletID := uuid.New()

	d.ledger.EXPECT().CreateWallet(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
			require.NotNil(t, req.Label)
			assert.Equal(t, "savings", *req.Label)
			return &domain.Wallet{ID: walletID, Label: &label, Balance: decimal.Zero, CreatedAt: time.Now()}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/wallets", []byte(`{"label":"  savings ","id":"x","balance":"500"}`))
	d.wallets.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, walletID.String(), data["id"])
	assert.Equal(t, "savings", data["label"])
	assert.Equal(t, "0", data["balance"])
}

func TestCreateWallet_InvalidJSON(t *testing.T) {
	d := setupHandlers(t)

	c, w := newContext(http.MethodPost, "/api/v1/wallets", []byte(`{"label":`))
	d.wallets.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", errorCode(t, w))
}

func TestGetWallet(t *testing.T) {
	d := setupHandlers(t)
	id := uuid.New()

	d.queries.EXPECT().GetWallet(gomock.Any(), id).
		Return(&domain.Wallet{ID: id, Balance: decimal.RequireFromString("12.340"), CreatedAt: time.Now()}, nil)

	c, w := newContext(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	d.wallets.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "12.34", data["balance"])
	assert.Nil(t, data["label"])
}

func TestGetWallet_NotFound(t *testing.T) {
	d := setupHandlers(t)
	id := uuid.New()
	d.queries.EXPECT().GetWallet(gomock.Any(), id).Return(nil, apperror.ErrNotFound("Wallet"))

	c, w := newContext(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	d.wallets.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RES_001", errorCode(t, w))
}

func TestGetWallet_MalformedID(t *testing.T) {
	d := setupHandlers(t)

	c, w := newContext(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	d.wallets.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditWallet(t *testing.T) {
	d := setupHandlers(t)
	id := uuid.New()
	d.queries.EXPECT().AuditWallet(gomock.Any(), id).Return(&domain.WalletAudit{
		WalletID:         id,
		StoredBalance:    decimal.RequireFromString("50"),
		LedgerBalance:    decimal.RequireFromString("50"),
		TransactionCount: 2,
	}, nil)

	c, w := newContext(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	d.wallets.Audit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["consistent"])
	assert.Equal(t, float64(2), data["transaction_count"])
	assert.Equal(t, "50", data["ledger_balance"])
}

func TestListWallets(t *testing.T) {
	d := setupHandlers(t)

	d.queries.EXPECT().ListWallets(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p ports.WalletListParams) ([]domain.Wallet, int64, error) {
			assert.Equal(t, domain.Sort{Field: domain.SortBalance, Desc: true}, p.Sort)
			assert.Equal(t, "main", *p.Label)
			assert.Equal(t, 2, p.Page)
			assert.Equal(t, 5, p.PageSize)
			return []domain.Wallet{{ID: uuid.New()}}, 6, nil
		})

	c, w := newContext(http.MethodGet, "/api/v1/wallets?label=main&sort=-balance&page=2&page_size=5", nil)
	d.wallets.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Len(t, data["items"], 1)
	assert.Equal(t, float64(6), data["total"])
	assert.Equal(t, float64(2), data["total_pages"])
}

func TestListWallets_InvalidSort(t *testing.T) {
	d := setupHandlers(t)

	c, w := newContext(http.MethodGet, "/api/v1/wallets?sort=txid", nil)
	d.wallets.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", errorCode(t, w))
}

func TestListWallets_InvalidPage(t *testing.T) {
	d := setupHandlers(t)

	c, w := newContext(http.MethodGet, "/api/v1/wallets?page=abc", nil)
	d.wallets.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Transaction Handler Tests ---

func TestCreateTransaction_Success(t *testing.T) {
	d := setupHandlers(t)
	walletID := uuid.New()
	txnID := uuid.New()

	d.ledger.EXPECT().ApplyTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.ApplyTransactionRequest) (*domain.Transaction, error) {
			assert.Equal(t, walletID, req.WalletID)
			assert.Equal(t, "ext-1", req.TxID)
			assert.True(t, decimal.RequireFromString("-12.5").Equal(req.Amount))
			return &domain.Transaction{
				ID: txnID, WalletID: walletID, TxID: req.TxID, Amount: req.Amount, CreatedAt: time.Now(),
			}, nil
		})

	body, _ := json.Marshal(map[string]string{
		"wallet_id": walletID.String(),
		"txid":      "ext-1",
		"amount":    "-12.50",
	})
	c, w := newContext(http.MethodPost, "/api/v1/transactions", body)
	d.txns.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, txnID.String(), data["id"])
	assert.Equal(t, "ext-1", data["txid"])
	assert.Equal(t, "-12.5", data["amount"])
}

func TestCreateTransaction_LedgerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		http int
	}{
		{"wallet not found", apperror.ErrWalletNotFound(), "LED_001", http.StatusBadRequest},
		{"duplicate", apperror.ErrDuplicateTransaction(), "LED_002", http.StatusBadRequest},
		{"negative", apperror.ErrNegativeBalance(), "LED_003", http.StatusBadRequest},
		{"lock timeout", apperror.ErrLockTimeout(errors.New("55P03")), "SYS_002", http.StatusServiceUnavailable},
		{"internal", apperror.InternalError(errors.New("db down")), "SYS_001", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupHandlers(t)
			d.ledger.EXPECT().ApplyTransaction(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			body := []byte(`{"wallet_id":"` + uuid.NewString() + `","txid":"t","amount":1}`)
			c, w := newContext(http.MethodPost, "/api/v1/transactions", body)
			d.txns.Create(c)

			assert.Equal(t, tt.http, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestCreateTransaction_ValidationErrors(t *testing.T) {
	bodies := map[string]string{
		"missing amount":  `{"wallet_id":"` + uuid.NewString() + `","txid":"t"}`,
		"bad wallet id":   `{"wallet_id":"nope","txid":"t","amount":"1"}`,
		"missing txid":    `{"wallet_id":"` + uuid.NewString() + `","amount":"1"}`,
		"malformed json":  `{"wallet_id":`,
		"bad amount text": `{"wallet_id":"` + uuid.NewString() + `","txid":"t","amount":"1e"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			d := setupHandlers(t)
			c, w := newContext(http.MethodPost, "/api/v1/transactions", []byte(body))
			d.txns.Create(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VAL_001", errorCode(t, w))
		})
	}
}

func TestGetTransaction(t *testing.T) {
	d := setupHandlers(t)
	id := uuid.New()
	d.queries.EXPECT().GetTransaction(gomock.Any(), id).
		Return(&domain.Transaction{ID: id, TxID: "abc", Amount: decimal.NewFromInt(3), CreatedAt: time.Now()}, nil)

	c, w := newContext(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	d.txns.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", decodeData(t, w)["txid"])
}

func TestListTransactions_Filters(t *testing.T) {
	d := setupHandlers(t)
	walletID := uuid.New()

	d.queries.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			assert.Equal(t, "abc", *p.TxID)
			assert.Equal(t, walletID, *p.WalletID)
			assert.Equal(t, "main", *p.WalletLabel)
			assert.Equal(t, domain.Sort{Field: domain.SortAmount}, p.Sort)
			assert.Equal(t, 1, p.Page)
			assert.Equal(t, domain.DefaultPageSize, p.PageSize)
			return []domain.Transaction{}, 0, nil
		})

	c, w := newContext(http.MethodGet,
		"/api/v1/transactions?txid=abc&wallet_id="+walletID.String()+"&wallet_label=main&sort=amount", nil)
	d.txns.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Empty(t, data["items"])
	assert.Equal(t, float64(0), data["total_pages"])
}

func TestListTransactions_BadWalletID(t *testing.T) {
	d := setupHandlers(t)

	c, w := newContext(http.MethodGet, "/api/v1/transactions?wallet_id=nope", nil)
	d.txns.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTransactions_ServiceError(t *testing.T) {
	d := setupHandlers(t)
	d.queries.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(nil, int64(0), errors.New("db down"))

	c, w := newContext(http.MethodGet, "/api/v1/transactions", nil)
	d.txns.List(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- Health Check Tests ---

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	rd := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Ping(gomock.Any()).Return(nil)
	pg.EXPECT().Name().Return("postgresql").AnyTimes()
	rd.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	rd.EXPECT().Name().Return("redis").AnyTimes()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(pg, rd)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	assert.Equal(t, "healthy", deps["postgresql"].(map[string]interface{})["status"])
	assert.Equal(t, "connection refused", deps["redis"].(map[string]interface{})["error"])
}

func TestSwaggerUI(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger", nil)

	SwaggerUI(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/swagger/spec")
}

func TestSwaggerSpec(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger/spec", nil)
	SwaggerSpec([]byte("openapi: '3.0.3'"))(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger/spec", nil)
	SwaggerSpec(nil)(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
