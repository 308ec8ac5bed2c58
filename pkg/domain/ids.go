// Package domain holds shared identifier types. IDs are distinct types over
// uuid.UUID so a consent ID can never be passed where a user ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "pacto/pkg/domain-errors"
)

// Typed identifiers for the aggregates in the system.
type (
	UserID         uuid.UUID
	ConsentID      uuid.UUID
	NotificationID uuid.UUID
)

// NewUserID generates a fresh user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewConsentID generates a fresh consent ID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewNotificationID generates a fresh notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// ParseUserID constructs a UserID from external input.
// Invariant: IDs must be valid, non-nil UUIDs; enforce at trust boundaries.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

// ParseConsentID constructs a ConsentID from external input.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s)
	return ConsentID(u), err
}

// ParseNotificationID constructs a NotificationID from external input.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s)
	return NotificationID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ConsentID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps IDs as canonical UUID strings in JSON.

func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id ConsentID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConsentID) UnmarshalText(b []byte) error {
	parsed, err := ParseConsentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *NotificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseNotificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
