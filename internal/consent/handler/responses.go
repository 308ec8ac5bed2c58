package handler

import (
	"encoding/json"
	"time"

	"pacto/internal/consent"
	"pacto/internal/consent/service"
	"pacto/internal/user"
)

// ConsentResponse is the wire shape of a consent. The payload is omitted:
// disclosure goes through the explicit payload endpoint only.
type ConsentResponse struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	PartnerID            string     `json:"partnerId"`
	Status               string     `json:"status"`
	PaymentStatus        string     `json:"paymentStatus"`
	InitiatorConfirmed   bool       `json:"initiatorConfirmed"`
	PartnerConfirmed     bool       `json:"partnerConfirmed"`
	BiometricValidated   bool       `json:"biometricValidated"`
	BiometricValidatedAt *time.Time `json:"biometricValidatedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func fromConsent(c consent.Consent) ConsentResponse {
	return ConsentResponse{
		ID:                   c.ID.String(),
		UserID:               c.UserID.String(),
		PartnerID:            c.PartnerID.String(),
		Status:               string(c.Status),
		PaymentStatus:        string(c.PaymentStatus),
		InitiatorConfirmed:   c.InitiatorConfirmed,
		PartnerConfirmed:     c.PartnerConfirmed,
		BiometricValidated:   c.BiometricValidated,
		BiometricValidatedAt: c.BiometricValidatedAt,
		CreatedAt:            c.CreatedAt,
	}
}

// HistoryItemResponse is one history row with both parties' public profiles.
type HistoryItemResponse struct {
	ConsentResponse
	Initiator user.PublicProfile `json:"initiator"`
	Partner   user.PublicProfile `json:"partner"`
}

func fromHistory(entries []service.HistoryEntry) []HistoryItemResponse {
	items := make([]HistoryItemResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, HistoryItemResponse{
			ConsentResponse: fromConsent(entry.Consent),
			Initiator:       entry.Initiator,
			Partner:         entry.Partner,
		})
	}
	return items
}

// PayloadResponse carries the decrypted consent document.
type PayloadResponse struct {
	Data json.RawMessage `json:"data"`
}
