package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// WalletCache implements ports.WalletCache with JSON snapshots.
type WalletCache struct {
	client *goredis.Client
}

// NewWalletCache creates a new Redis-backed wallet cache.
func NewWalletCache(client *goredis.Client) *WalletCache {
	return &WalletCache{client: client}
}

// Get returns the cached wallet, or nil, nil on a miss.
func (c *WalletCache) Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	raw, err := c.client.Get(ctx, walletPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis wallet get: %w", err)
	}

	var w domain.Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode cached wallet: %w", err)
	}
	return &w, nil
}

// Set stores a wallet snapshot with TTL.
func (c *WalletCache) Set(ctx context.Context, w *domain.Wallet, ttl time.Duration) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	if err := c.client.Set(ctx, walletPrefix+w.ID.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis wallet set: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot of a wallet.
func (c *WalletCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, walletPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis wallet del: %w", err)
	}
	return nil
}
