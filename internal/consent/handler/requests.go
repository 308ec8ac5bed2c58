package handler

import (
	"encoding/json"
	"strings"

	dErrors "pacto/pkg/domain-errors"
)

// CreateConsentRequest is the HTTP request body for POST /api/consent.
type CreateConsentRequest struct {
	PartnerEmail string          `json:"partnerEmail"`
	Data         json.RawMessage `json:"data"`
}

// Validate validates the request. The data document is free-form; it is
// encrypted before persistence and never inspected.
func (r *CreateConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.PartnerEmail = strings.TrimSpace(r.PartnerEmail)
	if r.PartnerEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "partnerEmail is required")
	}
	if !strings.Contains(r.PartnerEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "partnerEmail must be an email address")
	}

	if len(r.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "data is required")
	}
	return nil
}
