package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pacto/internal/billing"
	"pacto/internal/user"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/sentinel"
)

// AccountDirectory is the slice of the user store billing needs: resolving
// the purchaser and persisting the lazily created provider customer id.
type AccountDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (user.User, error)
	SetProviderCustomerID(ctx context.Context, userID id.UserID, customerID string) error
}

// CreditAdder applies a confirmed purchase to the ledger.
type CreditAdder interface {
	AddCredits(ctx context.Context, userID id.UserID, amount int) (int, error)
}

// Service owns the purchase flow: payment sheet out, webhook apply in.
type Service struct {
	accounts AccountDirectory
	provider billing.Provider
	credits  CreditAdder
	dedupe   billing.EventDeduper
	logger   *slog.Logger
}

func NewService(accounts AccountDirectory, provider billing.Provider, credits CreditAdder, dedupe billing.EventDeduper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		provider: provider,
		credits:  credits,
		dedupe:   dedupe,
		logger:   logger,
	}
}

// CreatePaymentSheet prices the pack, ensures a provider customer exists for
// the user, and opens a payment intent carrying the metadata the webhook
// needs to apply the purchase.
func (s *Service) CreatePaymentSheet(ctx context.Context, userID id.UserID, quantity int) (billing.PaymentSheet, error) {
	amount, err := billing.PriceFor(quantity)
	if err != nil {
		return billing.PaymentSheet{}, err
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return billing.PaymentSheet{}, dErrors.New(dErrors.CodeUnauthorized, "not authorized")
		}
		return billing.PaymentSheet{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolve purchaser")
	}

	name := strings.TrimSpace(account.FirstName + " " + account.LastName)
	customerID, err := s.provider.EnsureCustomer(ctx, account.ProviderCustomerID, account.Email, name)
	if err != nil {
		return billing.PaymentSheet{}, dErrors.Wrap(err, dErrors.CodeInternal, "ensure provider customer")
	}
	if customerID != account.ProviderCustomerID {
		if err := s.accounts.SetProviderCustomerID(ctx, userID, customerID); err != nil {
			return billing.PaymentSheet{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist provider customer id")
		}
	}

	intent, err := s.provider.CreateIntent(ctx, customerID, amount, billing.IntentMetadata{
		UserID:       userID.String(),
		PackQuantity: quantity,
	})
	if err != nil {
		return billing.PaymentSheet{}, dErrors.Wrap(err, dErrors.CodeInternal, "create payment intent")
	}

	return billing.PaymentSheet{
		ClientSecret: intent.ClientSecret,
		EphemeralKey: intent.EphemeralKey,
		CustomerID:   customerID,
		AmountCents:  amount,
	}, nil
}

// HandlePaymentSucceeded applies a confirmed payment to the ledger. Events
// are deduplicated by id: a redelivered event is absorbed as a no-op, never
// surfaced as an error and never applied twice.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, eventID string, userID id.UserID, quantity int) error {
	if eventID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "payment event id is required")
	}
	if quantity < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "quantity must be at least 1")
	}

	fresh, err := s.dedupe.MarkProcessed(ctx, eventID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "deduplicate payment event")
	}
	if !fresh {
		s.logger.InfoContext(ctx, "duplicate payment event absorbed",
			"event_id", eventID,
			"user_id", userID.String(),
		)
		return nil
	}

	newQuantity, err := s.credits.AddCredits(ctx, userID, quantity)
	if err != nil {
		return fmt.Errorf("apply payment %s: %w", eventID, err)
	}

	s.logger.InfoContext(ctx, "payment applied",
		"event_id", eventID,
		"user_id", userID.String(),
		"quantity", quantity,
		"new_quantity", newQuantity,
	)
	return nil
}
