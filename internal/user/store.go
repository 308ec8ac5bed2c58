package user

import (
	"context"

	id "pacto/pkg/domain"
)

// Store persists user accounts.
type Store interface {
	// Create inserts a new user; sentinel.ErrConflict when the email is taken.
	Create(ctx context.Context, user User) error

	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, userID id.UserID) (User, error)

	// FindByEmail returns sentinel.ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (User, error)

	// SetProviderCustomerID records the payment provider customer handle.
	SetProviderCustomerID(ctx context.Context, userID id.UserID, customerID string) error
}
