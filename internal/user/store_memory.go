package user

import (
	"context"
	"strings"
	"sync"

	id "pacto/pkg/domain"
	"pacto/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]User
	byEmail map[string]id.UserID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrConflict
	}
	s.byID[user.ID] = user
	s.byEmail[key] = user.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[userID]
	if !ok {
		return User{}, sentinel.ErrNotFound
	}
	return user, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, sentinel.ErrNotFound
	}
	return s.byID[userID], nil
}

func (s *InMemoryStore) SetProviderCustomerID(_ context.Context, userID id.UserID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.ProviderCustomerID = customerID
	s.byID[userID] = user
	return nil
}

// SetSubscribed flips the subscription flag; used by tests and seeds. The
// subscription webhook flow owns this in production.
func (s *InMemoryStore) SetSubscribed(userID id.UserID, subscribed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[userID]; ok {
		user.IsSubscribed = subscribed
		s.byID[userID] = user
	}
}
