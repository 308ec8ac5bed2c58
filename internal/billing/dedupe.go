package billing

import (
	"context"
	"sync"
)

// EventDeduper records processed payment event ids. MarkProcessed returns
// false when the event was seen before; redelivered events must be absorbed
// as no-ops, never applied twice.
type EventDeduper interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// MemoryDeduper is the single-process fallback when Redis is not configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[eventID]; ok {
		return false, nil
	}
	d.seen[eventID] = struct{}{}
	return true, nil
}
