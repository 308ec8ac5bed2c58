package service

import (
	"context"
	"errors"
	"time"

	"pacto/internal/ledger"
	"pacto/internal/platform/metrics"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/sentinel"
)

// SubscriptionSource reports whether a user holds an active subscription. The
// flag lives on the user record; the ledger only owns pack quantities.
type SubscriptionSource interface {
	IsSubscribed(ctx context.Context, userID id.UserID) (bool, error)
}

// Service is the credit-accounting facade. It translates store sentinels into
// domain errors and keeps the entitlement rule in one place.
type Service struct {
	store         ledger.Store
	subscriptions SubscriptionSource
	metrics       *metrics.Metrics
	clock         func() time.Time
}

type Option func(*Service)

// WithClock overrides the purchase timestamp source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(store ledger.Store, subscriptions SubscriptionSource, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		store:         store,
		subscriptions: subscriptions,
		metrics:       m,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance reads the current entitlement. No side effects.
func (s *Service) GetBalance(ctx context.Context, userID id.UserID) (ledger.Balance, error) {
	subscribed, err := s.subscriptions.IsSubscribed(ctx, userID)
	if err != nil {
		return ledger.Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "read subscription state")
	}

	entry, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// No purchase yet: quantity zero, not an error.
			return ledger.Balance{IsSubscribed: subscribed}, nil
		}
		return ledger.Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger entry")
	}
	return ledger.Balance{IsSubscribed: subscribed, Quantity: entry.Quantity}, nil
}

// ConsumeOneCredit atomically spends one pack credit. Callers compose it with
// their own unit of work so a consent is never created without a successful
// consumption, and vice versa.
func (s *Service) ConsumeOneCredit(ctx context.Context, userID id.UserID) error {
	if err := s.store.ConsumeOne(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrInsufficient) {
			return dErrors.New(dErrors.CodeInsufficientCredit, "no consent credits available")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "consume credit")
	}
	if s.metrics != nil {
		s.metrics.CreditsConsumed.Inc()
	}
	return nil
}

// AddCredits applies a confirmed purchase. Idempotency is the caller's
// responsibility: the billing service deduplicates payment events before
// calling here.
func (s *Service) AddCredits(ctx context.Context, userID id.UserID, amount int) (int, error) {
	if amount < 1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount must be at least 1")
	}
	quantity, err := s.store.AddCredits(ctx, userID, amount, s.clock())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "add credits")
	}
	if s.metrics != nil {
		s.metrics.CreditsAdded.Add(float64(amount))
	}
	return quantity, nil
}
