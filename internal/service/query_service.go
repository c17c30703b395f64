package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// queryService implements ports.QueryService.
type queryService struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	cache      ports.WalletCache
	cacheTTL   time.Duration
	log        zerolog.Logger
}

// NewQueryService creates a new query service. cache may be nil.
func NewQueryService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	cache ports.WalletCache,
	cacheTTL time.Duration,
	log zerolog.Logger,
) ports.QueryService {
	if cache == nil {
		cache = nopWalletCache{}
	}
	return &queryService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// GetWallet returns a wallet, served from the cache when possible.
func (s *queryService) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("wallet_id", id.String()).Msg("wallet cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	if s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, wallet, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("wallet_id", id.String()).Msg("wallet cache write failed")
		}
	}
	return wallet, nil
}

// ListWallets returns a page of wallets.
func (s *queryService) ListWallets(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	params.Page, params.PageSize = domain.NormalizePage(params.Page, params.PageSize)
	wallets, total, err := s.walletRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return wallets, total, nil
}

// AuditWallet compares the stored balance with the committed transaction log.
// Reads bypass the cache.
func (s *queryService) AuditWallet(ctx context.Context, id uuid.UUID) (*domain.WalletAudit, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	agg, err := s.txRepo.AggregateByWallet(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("aggregate transactions: %w", err))
	}

	audit := &domain.WalletAudit{
		WalletID:         wallet.ID,
		StoredBalance:    wallet.Balance,
		LedgerBalance:    agg.Sum,
		TransactionCount: agg.Count,
	}
	if !audit.Consistent() {
		s.log.Error().
			Str("wallet_id", id.String()).
			Str("stored", audit.StoredBalance.String()).
			Str("ledger", audit.LedgerBalance.String()).
			Msg("wallet balance does not match transaction log")
	}
	return audit, nil
}

// GetTransaction returns a single transaction.
func (s *queryService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("Transaction")
	}
	return txn, nil
}

// ListTransactions returns a page of transactions.
func (s *queryService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	params.Page, params.PageSize = domain.NormalizePage(params.Page, params.PageSize)
	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return txns, total, nil
}
