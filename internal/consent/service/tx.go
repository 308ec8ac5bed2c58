package service

import (
	"context"
	"sync"
	"time"

	dErrors "pacto/pkg/domain-errors"
)

// UnitOfWork runs fn as one atomic unit. The key identifies the contended
// resource (the initiator's user id for create): the in-memory implementation
// serializes on it, the postgres implementation opens a transaction and puts
// it in fn's context.
type UnitOfWork interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Operations distribute across N shards by key hash instead of one global
// lock, reducing contention under concurrent load.
const numTxShards = 128

const defaultTxTimeout = 5 * time.Second

// ShardedTx is the in-memory UnitOfWork. Atomicity comes from mutual
// exclusion per shard; the underlying stores apply each mutation atomically
// on their own.
type ShardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := hashKey(key) % numTxShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
