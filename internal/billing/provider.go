package billing

import "context"

// IntentMetadata travels with the payment intent and comes back on the
// webhook; it is the only link between a provider event and a ledger apply.
type IntentMetadata struct {
	UserID       string
	PackQuantity int
}

// Intent is the provider's created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	EphemeralKey string
}

// Provider abstracts the payment provider. The real implementation wraps the
// provider SDK; tests use a fake.
type Provider interface {
	// EnsureCustomer returns the provider customer id for the user, creating
	// one when the user has none yet.
	EnsureCustomer(ctx context.Context, existingCustomerID, email, name string) (string, error)

	// CreateIntent opens a payment intent for the amount, attaching metadata.
	CreateIntent(ctx context.Context, customerID string, amountCents int, metadata IntentMetadata) (Intent, error)
}
