package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// DepositDedup provides idempotency for deposit webhook references.
// Key format: dedup:deposit:<reference>
type DepositDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDepositDedup creates a DepositDedup wrapping the given Redis client.
func NewDepositDedup(client *redis.Client) *DepositDedup {
	return &DepositDedup{client: client, ttl: dedupTTL}
}

// Claim atomically reserves ref. It returns false when ref was already
// claimed within the TTL.
func (d *DepositDedup) Claim(ctx context.Context, ref string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(ref), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release frees ref so a failed deposit can be retried.
func (d *DepositDedup) Release(ctx context.Context, ref string) error {
	if err := d.client.Del(ctx, d.key(ref)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

func (d *DepositDedup) key(ref string) string {
	return "dedup:deposit:" + ref
}
