package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TxIDRegistry implements ports.TxIDRegistry using Redis keys with TTL.
type TxIDRegistry struct {
	client *goredis.Client
}

// NewTxIDRegistry creates a new Redis-backed txid registry.
func NewTxIDRegistry(client *goredis.Client) *TxIDRegistry {
	return &TxIDRegistry{client: client}
}

// Seen reports whether txid was remembered and has not expired.
func (r *TxIDRegistry) Seen(ctx context.Context, txid string) (bool, error) {
	n, err := r.client.Exists(ctx, txidPrefix+txid).Result()
	if err != nil {
		return false, fmt.Errorf("redis txid exists: %w", err)
	}
	return n > 0, nil
}

// Remember records a committed txid. A zero ttl keeps it forever.
func (r *TxIDRegistry) Remember(ctx context.Context, txid string, ttl time.Duration) error {
	if err := r.client.Set(ctx, txidPrefix+txid, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis txid set: %w", err)
	}
	return nil
}
