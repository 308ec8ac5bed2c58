package ledger

import (
	"context"
	"time"

	id "pacto/pkg/domain"
)

// Store persists pack credit entries. Implementations must make ConsumeOne and
// AddCredits atomic: concurrent consumers of the same row must serialize so a
// credit is never spent twice.
type Store interface {
	// Get returns the entry for a user, or sentinel.ErrNotFound when the user
	// has never purchased a pack.
	Get(ctx context.Context, userID id.UserID) (Entry, error)

	// ConsumeOne decrements quantity by one iff quantity >= 1, returning
	// sentinel.ErrInsufficient otherwise (including when no row exists).
	ConsumeOne(ctx context.Context, userID id.UserID) error

	// AddCredits increments quantity (creating the row if absent), stamps
	// purchasedAt, and returns the new quantity.
	AddCredits(ctx context.Context, userID id.UserID, amount int, purchasedAt time.Time) (int, error)
}
