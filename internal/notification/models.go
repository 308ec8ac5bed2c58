// Package notification is the sink for consent lifecycle fan-out. Rows are
// written once by the consent engine and only ever mutated by their recipient
// marking them read.
package notification

import (
	"time"

	id "pacto/pkg/domain"
)

// Type labels what happened. The set is open: new lifecycle events add values
// without schema changes.
type Type string

const (
	TypeConsentRequest        Type = "CONSENT_REQUEST"
	TypeBiometricConfirmation Type = "BIOMETRIC_CONFIRMATION"
)

// Notification is one unread-until-acknowledged message for a user. ConsentID
// is a loose back-reference, not ownership.
type Notification struct {
	ID        id.NotificationID
	UserID    id.UserID
	Type      Type
	Message   string
	ConsentID id.ConsentID
	IsRead    bool
	CreatedAt time.Time
}
