// Package ledger tracks each user's consent credits: a per-user pack quantity
// plus the subscription flag owned by the user record. Consent creation is
// gated on this balance.
package ledger

import (
	"time"

	id "pacto/pkg/domain"
)

// Entry is the one-per-user pack credit row. Created lazily on first purchase,
// never deleted. Invariant: Quantity >= 0 always.
type Entry struct {
	UserID      id.UserID
	Quantity    int
	PurchasedAt time.Time
}

// Balance is the entitlement snapshot consent creation checks against.
type Balance struct {
	IsSubscribed bool
	Quantity     int
}

// CanCreateConsent reports whether this balance permits creating a consent.
func (b Balance) CanCreateConsent() bool {
	return b.IsSubscribed || b.Quantity >= 1
}
