// Package events publishes consent lifecycle events to Kafka. Emission is
// fire-and-forget from the request path; a background worker drains a buffered
// channel and publishes, so a slow or absent broker never blocks a request.
package events

import (
	"time"

	id "pacto/pkg/domain"
)

type Type string

const (
	TypeConsentCreated     Type = "consent.created"
	TypeConsentAccepted    Type = "consent.accepted"
	TypeConsentRefused     Type = "consent.refused"
	TypeBiometricValidated Type = "consent.biometric_validated"
)

// Event is one lifecycle record. ActorID is the user whose action caused it.
type Event struct {
	Type       Type         `json:"type"`
	ConsentID  id.ConsentID `json:"consentId"`
	ActorID    id.UserID    `json:"actorId"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// Emitter accepts events without blocking. Implementations drop on overflow
// rather than stall the caller.
type Emitter interface {
	Emit(evt Event)
}

// NopEmitter discards everything; used when no broker is configured.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
