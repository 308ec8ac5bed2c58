package consent

import (
	"context"
	"sort"
	"sync"
	"time"

	id "pacto/pkg/domain"
	"pacto/pkg/platform/sentinel"
)

// InMemoryStore keeps consents under one mutex, which gives every operation
// the row-level atomicity the interface demands.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[id.ConsentID]Consent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{consents: make(map[id.ConsentID]Consent)}
}

func (s *InMemoryStore) Create(_ context.Context, c Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.consents[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.consents[c.ID] = c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, consentID id.ConsentID) (Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[consentID]
	if !ok {
		return Consent{}, sentinel.ErrNotFound
	}
	return c, nil
}

func (s *InMemoryStore) SetPartnerDecision(_ context.Context, consentID id.ConsentID, status Status, partnerConfirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.PartnerConfirmed = partnerConfirmed
	s.consents[consentID] = c
	return nil
}

func (s *InMemoryStore) Confirm(_ context.Context, consentID id.ConsentID, role Role, at time.Time) (ConfirmResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[consentID]
	if !ok {
		return ConfirmResult{}, sentinel.ErrNotFound
	}

	next, fired := c.Confirmation().Advance(role)
	c.InitiatorConfirmed = next.Initiator
	c.PartnerConfirmed = next.Partner
	if fired {
		c.BiometricValidated = true
		stamp := at
		c.BiometricValidatedAt = &stamp
	}
	s.consents[consentID] = c
	return ConfirmResult{Consent: c, Fired: fired}, nil
}

func (s *InMemoryStore) MarkDeletedByInitiator(_ context.Context, consentID id.ConsentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.DeletedByInitiator = true
	s.consents[consentID] = c
	return nil
}

func (s *InMemoryStore) ListByParticipant(_ context.Context, userID id.UserID, status *Status, offset, limit int) ([]Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Consent
	for _, c := range s.consents {
		if c.UserID != userID && c.PartnerID != userID {
			continue
		}
		if c.UserID == userID && c.DeletedByInitiator {
			continue
		}
		if c.PartnerID == userID && c.DeletedByPartner {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		matches = append(matches, c)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if offset >= len(matches) {
		return nil, nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}
