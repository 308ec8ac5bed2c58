package billing

import (
	"context"
	"fmt"
	"time"

	platformredis "pacto/internal/platform/redis"
)

const (
	dedupeKeyPrefix = "pacto:payment-event:"

	// Providers stop redelivering well within this window.
	dedupeTTL = 72 * time.Hour
)

// RedisDeduper deduplicates payment events across processes with SETNX.
type RedisDeduper struct {
	client *platformredis.Client
}

func NewRedisDeduper(client *platformredis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	fresh, err := d.client.SetNX(ctx, dedupeKeyPrefix+eventID, 1, dedupeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark payment event processed: %w", err)
	}
	return fresh, nil
}
