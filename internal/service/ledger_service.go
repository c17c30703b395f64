package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "wallet-ledger/internal/service"

// Balance strategies. Both run under the wallet lock.
const (
	// StrategyRecompute sets the balance to the sum of all of the wallet's transactions.
	StrategyRecompute = "recompute"
	// StrategyIncrement adds the amount to the locked balance.
	StrategyIncrement = "increment"
)

const maxLabelLength = 255

// LedgerOptions tunes the ledger engine.
type LedgerOptions struct {
	BalanceStrategy string
	TxIDTTL         time.Duration
	TracerProvider  trace.TracerProvider // defaults to the global provider
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	registry   ports.TxIDRegistry
	cache      ports.WalletCache
	strategy   string
	txidTTL    time.Duration
	tracer     trace.Tracer
	now        func() time.Time
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. registry and cache may be
// nil when Redis is not configured.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	registry ports.TxIDRegistry,
	cache ports.WalletCache,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if registry == nil {
		registry = nopTxIDRegistry{}
	}
	if cache == nil {
		cache = nopWalletCache{}
	}
	if opts.BalanceStrategy == "" {
		opts.BalanceStrategy = StrategyRecompute
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		registry:   registry,
		cache:      cache,
		strategy:   opts.BalanceStrategy,
		txidTTL:    opts.TxIDTTL,
		tracer:     tp.Tracer(tracerName),
		now:        time.Now,
		log:        log,
	}
}

// CreateWallet creates a wallet with a fresh id and a zero balance.
func (s *LedgerServiceImpl) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.CreateWallet")
	defer span.End()

	label, err := normalizeLabel(req.Label)
	if err != nil {
		s.finishSpan(span, err)
		return nil, err
	}

	wallet := domain.NewWallet(label, s.now().UTC())
	span.SetAttributes(attribute.String("wallet.id", wallet.ID.String()))

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		appErr := apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		s.finishSpan(span, appErr)
		return nil, appErr
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("label", wallet.LabelValue()).
		Msg("wallet created")

	return wallet, nil
}

// ApplyTransaction records a transaction and updates its wallet balance in
// one unit of work. Concurrent calls for the same wallet serialize on the
// wallet row lock. The engine never retries.
func (s *LedgerServiceImpl) ApplyTransaction(ctx context.Context, req ports.ApplyTransactionRequest) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.ApplyTransaction", trace.WithAttributes(
		attribute.String("wallet.id", req.WalletID.String()),
		attribute.String("txid", req.TxID),
		attribute.String("amount", req.Amount.String()),
		attribute.String("balance.strategy", s.strategy),
	))
	defer span.End()

	txn, err := s.applyTransaction(ctx, req)
	s.finishSpan(span, err)
	if err != nil {
		s.logRejection(req, err)
		return nil, err
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("txid", txn.TxID).
		Str("wallet_id", txn.WalletID.String()).
		Str("amount", txn.Amount.String()).
		Msg("transaction applied")

	return txn, nil
}

func (s *LedgerServiceImpl) applyTransaction(ctx context.Context, req ports.ApplyTransactionRequest) (*domain.Transaction, error) {
	if strings.TrimSpace(req.TxID) == "" {
		return nil, apperror.Validation("txid is required")
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount(err)
	}

	if err := s.checkKnownTxID(ctx, req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, storageError("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	txn := &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		TxID:      req.TxID,
		Amount:    req.Amount,
		CreatedAt: s.now().UTC(),
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateTxID) {
			return nil, apperror.ErrDuplicateTransaction()
		}
		return nil, storageError("create transaction", err)
	}

	newBalance, err := s.nextBalance(ctx, dbTx, wallet, txn)
	if err != nil {
		return nil, err
	}
	if newBalance.IsNegative() {
		return nil, apperror.ErrNegativeBalance()
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, storageError("update balance", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	// Post-commit steps are best-effort.
	if err := s.registry.Remember(ctx, txn.TxID, s.txidTTL); err != nil {
		s.log.Warn().Err(err).Str("txid", txn.TxID).Msg("failed to record txid in registry")
	}
	if err := s.cache.Invalidate(ctx, wallet.ID); err != nil {
		s.log.Warn().Err(err).Str("wallet_id", wallet.ID.String()).Msg("failed to invalidate wallet cache")
	}

	return txn, nil
}

// checkKnownTxID is the fast path for replays of committed txids. A registry
// hit is only a hint. It is confirmed against the store without taking the
// wallet lock; an unconfirmed hit returns nil so the locked path and its
// unique constraint decide.
func (s *LedgerServiceImpl) checkKnownTxID(ctx context.Context, req ports.ApplyTransactionRequest) error {
	seen, err := s.registry.Seen(ctx, req.TxID)
	if err != nil {
		s.log.Warn().Err(err).Str("txid", req.TxID).Msg("txid registry lookup failed, falling through to store")
		return nil
	}
	if !seen {
		return nil
	}

	// An unknown wallet outranks a duplicate txid.
	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return storageError("get wallet", err)
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound()
	}

	exists, err := s.txRepo.ExistsByTxID(ctx, req.TxID)
	if err != nil {
		s.log.Warn().Err(err).Str("txid", req.TxID).Msg("txid existence check failed, falling through to store")
		return nil
	}
	if !exists {
		s.log.Warn().Str("txid", req.TxID).Msg("stale txid registry entry")
		return nil
	}
	return apperror.ErrDuplicateTransaction()
}

// nextBalance computes the post-transaction balance inside the unit of work.
func (s *LedgerServiceImpl) nextBalance(ctx context.Context, dbTx pgx.Tx, wallet *domain.Wallet, txn *domain.Transaction) (decimal.Decimal, error) {
	if s.strategy == StrategyIncrement {
		return wallet.Balance.Add(txn.Amount), nil
	}

	sum, err := s.txRepo.SumByWallet(ctx, dbTx, wallet.ID)
	if err != nil {
		return decimal.Zero, storageError("sum transactions", err)
	}
	return sum, nil
}

func (s *LedgerServiceImpl) finishSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		span.SetAttributes(attribute.String("error.code", appErr.Code))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// logRejection logs client rejections at debug and everything else at error.
func (s *LedgerServiceImpl) logRejection(req ports.ApplyTransactionRequest, err error) {
	event := s.log.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
		event = s.log.Debug().Str("code", appErr.Code)
	}
	event.Err(err).
		Str("txid", req.TxID).
		Str("wallet_id", req.WalletID.String()).
		Str("amount", req.Amount.String()).
		Msg("transaction rejected")
}

// storageError maps adapter errors to AppErrors. Lock waits that time out are
// reported as a retryable service error.
func storageError(op string, err error) error {
	if errors.Is(err, domain.ErrLockTimeout) {
		return apperror.ErrLockTimeout(fmt.Errorf("%s: %w", op, err))
	}
	return apperror.ErrDatabaseError(fmt.Errorf("%s: %w", op, err))
}

// normalizeLabel trims the label; a blank label means no label.
func normalizeLabel(label *string) (*string, error) {
	if label == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*label)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxLabelLength {
		return nil, apperror.Validation(fmt.Sprintf("label must be at most %d characters", maxLabelLength))
	}
	return &trimmed, nil
}
