package consent

import (
	"context"
	"time"

	id "pacto/pkg/domain"
)

// ConfirmResult reports the state after a confirmation and whether this call
// crossed the both-confirmed edge.
type ConfirmResult struct {
	Consent Consent
	Fired   bool
}

// Store persists consents. Confirm must be atomic per row: under concurrent
// confirmation by both parties the combined state holds both flags and Fired
// is reported by exactly one call.
type Store interface {
	Create(ctx context.Context, c Consent) error

	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, consentID id.ConsentID) (Consent, error)

	// SetPartnerDecision records the partner's accept/refuse, updating status
	// and the partner confirmation flag together.
	SetPartnerDecision(ctx context.Context, consentID id.ConsentID, status Status, partnerConfirmed bool) error

	// Confirm sets the role's confirmation flag; when both flags are true and
	// the consent is not yet biometric-validated it also sets the validated
	// flag and timestamp in the same atomic step.
	Confirm(ctx context.Context, consentID id.ConsentID, role Role, at time.Time) (ConfirmResult, error)

	// MarkDeletedByInitiator sets the initiator's tombstone. The partner's
	// view is unaffected.
	MarkDeletedByInitiator(ctx context.Context, consentID id.ConsentID) error

	// ListByParticipant returns consents where the user is initiator or
	// partner, optionally filtered by status, newest first. Rows the user
	// soft-deleted are excluded from their own view only.
	ListByParticipant(ctx context.Context, userID id.UserID, status *Status, offset, limit int) ([]Consent, error)
}
