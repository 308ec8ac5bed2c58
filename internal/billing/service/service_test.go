package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacto/internal/billing"
	"pacto/internal/ledger"
	ledgerservice "pacto/internal/ledger/service"
	"pacto/internal/user"
	userservice "pacto/internal/user/service"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
)

type fakeProvider struct {
	customers int
	intents   []billing.IntentMetadata
}

func (p *fakeProvider) EnsureCustomer(_ context.Context, existingCustomerID, _, _ string) (string, error) {
	if existingCustomerID != "" {
		return existingCustomerID, nil
	}
	p.customers++
	return "cus_test", nil
}

func (p *fakeProvider) CreateIntent(_ context.Context, customerID string, amountCents int, metadata billing.IntentMetadata) (billing.Intent, error) {
	p.intents = append(p.intents, metadata)
	return billing.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", EphemeralKey: "ek_test"}, nil
}

type fixture struct {
	svc      *Service
	users    *user.InMemoryStore
	credits  *ledgerservice.Service
	provider *fakeProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := user.NewInMemoryStore()
	credits := ledgerservice.NewService(ledger.NewInMemoryStore(), userservice.SubscriptionReader{Store: users}, nil)
	provider := &fakeProvider{}
	svc := NewService(users, provider, credits, billing.NewMemoryDeduper(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &fixture{svc: svc, users: users, credits: credits, provider: provider}
}

func (f *fixture) seedUser(t *testing.T) id.UserID {
	t.Helper()
	u := user.User{ID: id.NewUserID(), Email: "alice@example.com", FirstName: "Alice"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func TestCreatePaymentSheet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.seedUser(t)

	sheet, err := f.svc.CreatePaymentSheet(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1000, sheet.AmountCents)
	assert.Equal(t, "pi_test_secret", sheet.ClientSecret)
	assert.Equal(t, "cus_test", sheet.CustomerID)

	require.Len(t, f.provider.intents, 1)
	assert.Equal(t, userID.String(), f.provider.intents[0].UserID)
	assert.Equal(t, 10, f.provider.intents[0].PackQuantity)

	t.Run("customer id persisted and reused", func(t *testing.T) {
		account, err := f.users.FindByID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "cus_test", account.ProviderCustomerID)

		_, err = f.svc.CreatePaymentSheet(ctx, userID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, f.provider.customers, "second purchase must reuse the customer")
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		_, err := f.svc.CreatePaymentSheet(ctx, userID, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.CreatePaymentSheet(ctx, id.NewUserID(), 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestHandlePaymentSucceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.seedUser(t)

	require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, "evt_1", userID, 10))

	balance, err := f.credits.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance.Quantity)

	t.Run("redelivery is a no-op", func(t *testing.T) {
		require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, "evt_1", userID, 10))

		balance, err := f.credits.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 10, balance.Quantity, "a redelivered event must not add credits twice")
	})

	t.Run("distinct events accumulate", func(t *testing.T) {
		require.NoError(t, f.svc.HandlePaymentSucceeded(ctx, "evt_2", userID, 1))

		balance, err := f.credits.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 11, balance.Quantity)
	})

	t.Run("missing event id rejected", func(t *testing.T) {
		err := f.svc.HandlePaymentSucceeded(ctx, "", userID, 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
