// Package billing integrates the payment provider: payment sheets for credit
// pack purchases and the webhook path that applies confirmed payments to the
// ledger, exactly once per payment event.
package billing

import (
	dErrors "pacto/pkg/domain-errors"
)

// maxPackQuantity bounds a single purchase.
const maxPackQuantity = 100

// PaymentSheet is everything a mobile client needs to present the provider's
// payment UI.
type PaymentSheet struct {
	ClientSecret string `json:"clientSecret"`
	EphemeralKey string `json:"ephemeralKey"`
	CustomerID   string `json:"customerId"`
	AmountCents  int    `json:"amount"`
}

// PriceFor returns the charge in cents for a credit pack. Flat rate of 100
// cents per credit (1 -> 100, 10 -> 1000).
func PriceFor(quantity int) (int, error) {
	if quantity < 1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "quantity must be at least 1")
	}
	if quantity > maxPackQuantity {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "quantity exceeds the pack limit")
	}
	return quantity * 100, nil
}
