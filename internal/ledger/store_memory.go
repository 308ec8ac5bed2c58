package ledger

import (
	"context"
	"sync"
	"time"

	id "pacto/pkg/domain"
	"pacto/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger entries under a single mutex. Good enough for
// tests and development; the quantity invariant is enforced the same way the
// SQL store enforces it.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[id.UserID]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.UserID]Entry)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *InMemoryStore) ConsumeOne(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok || entry.Quantity < 1 {
		return sentinel.ErrInsufficient
	}
	entry.Quantity--
	s.entries[userID] = entry
	return nil
}

func (s *InMemoryStore) AddCredits(_ context.Context, userID id.UserID, amount int, purchasedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		entry = Entry{UserID: userID}
	}
	entry.Quantity += amount
	entry.PurchasedAt = purchasedAt
	s.entries[userID] = entry
	return entry.Quantity, nil
}
