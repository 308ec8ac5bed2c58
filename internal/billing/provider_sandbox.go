package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SandboxProvider is the development Provider: it mints identifiers locally
// and never charges anyone. The production binary swaps in the real provider
// SDK behind the same interface.
type SandboxProvider struct{}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{}
}

func (SandboxProvider) EnsureCustomer(_ context.Context, existingCustomerID, _, _ string) (string, error) {
	if existingCustomerID != "" {
		return existingCustomerID, nil
	}
	return "cus_sandbox_" + uuid.NewString(), nil
}

func (SandboxProvider) CreateIntent(_ context.Context, customerID string, amountCents int, _ IntentMetadata) (Intent, error) {
	intentID := "pi_sandbox_" + uuid.NewString()
	return Intent{
		ID:           intentID,
		ClientSecret: fmt.Sprintf("%s_secret_%d", intentID, amountCents),
		EphemeralKey: "ek_sandbox_" + customerID,
	}, nil
}
