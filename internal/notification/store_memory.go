package notification

import (
	"context"
	"sort"
	"sync"

	id "pacto/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	byUser map[id.UserID][]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byUser: make(map[id.UserID][]Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n)
	return nil
}

func (s *InMemoryStore) ListUnread(_ context.Context, userID id.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var unread []Notification
	for _, n := range s.byUser[userID] {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	sort.SliceStable(unread, func(i, j int) bool {
		return unread[i].CreatedAt.After(unread[j].CreatedAt)
	})
	return unread, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, userID id.UserID, ids []id.NotificationID) error {
	wanted := make(map[id.NotificationID]bool, len(ids))
	for _, nid := range ids {
		wanted[nid] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[userID]
	for i := range list {
		if wanted[list[i].ID] {
			list[i].IsRead = true
		}
	}
	s.byUser[userID] = list
	return nil
}
