// Package consent owns the bilateral consent record and its lifecycle: a
// PENDING request the partner accepts or refuses, plus a two-party
// confirmation lattice that advances monotonically to biometric validation.
package consent

import (
	"time"

	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
)

// Status is the partner's decision. PENDING until the partner acts; ACCEPTED
// and REFUSED are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRefused  Status = "REFUSED"
)

// ParseStatusFilter interprets a history filter. Empty and "ALL" mean no
// filtering; anything else must be a valid status.
func ParseStatusFilter(s string) (*Status, error) {
	switch Status(s) {
	case "", "ALL":
		return nil, nil
	case StatusPending, StatusAccepted, StatusRefused:
		status := Status(s)
		return &status, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid status filter")
	}
}

// PaymentStatus records how the creation was funded: COMPLETED for subscribed
// initiators, PENDING for pack-credit creations awaiting settlement.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

// Role identifies which side of the consent a user is on.
type Role string

const (
	RoleInitiator Role = "initiator"
	RolePartner   Role = "partner"
)

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleInitiator {
		return RolePartner
	}
	return RoleInitiator
}

// Confirmation is the confirmation state: one flag per party plus the
// validated marker. Flags only ever advance here; the partner flag reset on
// refusal happens outside this type.
type Confirmation struct {
	Initiator bool
	Partner   bool
	Validated bool
}

// Both reports whether both parties have confirmed.
func (c Confirmation) Both() bool { return c.Initiator && c.Partner }

// Advance sets the given role's flag and reports whether this transition
// reached validation: both flags true and not yet validated. Validation is
// monotonic, so fired is true at most once per consent; callers key the
// notification side effect off it so it runs exactly once regardless of
// arrival order or storage retries. The initiator flag is set at creation,
// which means a consent accepted by the partner validates on the next
// confirmation from either side.
func (c Confirmation) Advance(role Role) (next Confirmation, fired bool) {
	next = c
	switch role {
	case RoleInitiator:
		next.Initiator = true
	case RolePartner:
		next.Partner = true
	}
	fired = next.Both() && !c.Validated
	next.Validated = c.Validated || fired
	return next, fired
}

// Consent is the central entity. EncryptedData is opaque ciphertext; only the
// encryption gateway can open it, and only on an explicit decrypt request.
type Consent struct {
	ID        id.ConsentID
	UserID    id.UserID // initiator
	PartnerID id.UserID

	Status        Status
	PaymentStatus PaymentStatus

	InitiatorConfirmed   bool
	PartnerConfirmed     bool
	BiometricValidated   bool
	BiometricValidatedAt *time.Time

	DeletedByInitiator bool
	DeletedByPartner   bool
	Archived           bool

	EncryptedData string
	CreatedAt     time.Time
}

// Confirmation projects the consent's flags onto the transition type.
func (c Consent) Confirmation() Confirmation {
	return Confirmation{
		Initiator: c.InitiatorConfirmed,
		Partner:   c.PartnerConfirmed,
		Validated: c.BiometricValidated,
	}
}

// RoleOf returns the role the given user plays on this consent, if any.
func (c Consent) RoleOf(userID id.UserID) (Role, bool) {
	switch userID {
	case c.UserID:
		return RoleInitiator, true
	case c.PartnerID:
		return RolePartner, true
	default:
		return "", false
	}
}
