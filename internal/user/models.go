// Package user owns identity records. Consent and ledger reference users by id
// only; nothing here points back at them.
package user

import (
	"time"

	id "pacto/pkg/domain"
)

// User is the account record. PasswordHash never leaves this package except
// through the store.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string

	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	PhotoURL    string

	// ProviderCustomerID links the account to the payment provider; set
	// lazily on first purchase.
	ProviderCustomerID string

	IsSubscribed        bool
	SubscriptionEndDate *time.Time

	Score  int
	Badges []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicProfile is the subset of a user other parties may see, embedded in
// consent history rows.
type PublicProfile struct {
	ID        id.UserID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	PhotoURL  string    `json:"photoUrl"`
}

// Public projects the user onto its shareable profile.
func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		PhotoURL:  u.PhotoURL,
	}
}
