package service

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// Used when Redis is disabled.
type nopTxIDRegistry struct{}

func (nopTxIDRegistry) Seen(context.Context, string) (bool, error)           { return false, nil }
func (nopTxIDRegistry) Remember(context.Context, string, time.Duration) error { return nil }

type nopWalletCache struct{}

func (nopWalletCache) Get(context.Context, uuid.UUID) (*domain.Wallet, error)  { return nil, nil }
func (nopWalletCache) Set(context.Context, *domain.Wallet, time.Duration) error { return nil }
func (nopWalletCache) Invalidate(context.Context, uuid.UUID) error              { return nil }
