package notification

import (
	"context"

	id "pacto/pkg/domain"
)

// Store persists notifications. Inserts are append-only and need no
// serialization beyond atomicity; MarkRead must only touch rows owned by the
// given user.
type Store interface {
	Create(ctx context.Context, n Notification) error

	// ListUnread returns the user's unread notifications, newest first.
	ListUnread(ctx context.Context, userID id.UserID) ([]Notification, error)

	// MarkRead flags the given ids as read for rows owned by userID. Ids that
	// do not exist or belong to someone else are silently skipped.
	MarkRead(ctx context.Context, userID id.UserID, ids []id.NotificationID) error
}
