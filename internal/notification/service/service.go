package service

import (
	"context"
	"time"

	"pacto/internal/notification"
	"pacto/internal/platform/metrics"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
)

// Service is the notification sink facade. The consent engine drives Emit;
// recipients drive ListUnread and MarkRead.
type Service struct {
	store   notification.Store
	metrics *metrics.Metrics
	clock   func() time.Time
}

type Option func(*Service)

// WithClock overrides the creation timestamp source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(store notification.Store, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{store: store, metrics: m, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit persists an unread notification for the recipient.
func (s *Service) Emit(ctx context.Context, recipient id.UserID, typ notification.Type, message string, consentID id.ConsentID) error {
	n := notification.Notification{
		ID:        id.NewNotificationID(),
		UserID:    recipient,
		Type:      typ,
		Message:   message,
		ConsentID: consentID,
		IsRead:    false,
		CreatedAt: s.clock(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist notification")
	}
	if s.metrics != nil {
		s.metrics.NotificationsEmitted.WithLabelValues(string(typ)).Inc()
	}
	return nil
}

func (s *Service) ListUnread(ctx context.Context, userID id.UserID) ([]notification.Notification, error) {
	unread, err := s.store.ListUnread(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications")
	}
	return unread, nil
}

// MarkRead flags the caller's notifications among ids as read; ids the caller
// does not own are ignored.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, ids []id.NotificationID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.MarkRead(ctx, userID, ids); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mark notifications read")
	}
	return nil
}
