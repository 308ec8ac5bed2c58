package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacto/internal/ledger"
	"pacto/internal/user"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
)

type fakeTokens struct{}

func (fakeTokens) GenerateAccessToken(userID id.UserID, email string, _ time.Duration) (string, error) {
	return "token-for-" + email, nil
}

type fakeBalances struct {
	quantity int
}

func (f fakeBalances) GetBalance(_ context.Context, _ id.UserID) (ledger.Balance, error) {
	return ledger.Balance{Quantity: f.quantity}, nil
}

func newTestService(quantity int) (*Service, *user.InMemoryStore) {
	store := user.NewInMemoryStore()
	svc := NewService(store, fakeTokens{}, fakeBalances{quantity: quantity}, nil, time.Hour)
	return svc, store
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and issues token", func(t *testing.T) {
		svc, store := newTestService(0)
		result, err := svc.Signup(ctx, SignupParams{
			Email:     "alice@example.com",
			Password:  "hunter22",
			FirstName: "Alice",
		})
		require.NoError(t, err)
		assert.Equal(t, "token-for-alice@example.com", result.Token)
		assert.False(t, result.User.ID.IsNil())

		stored, err := store.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "hunter22", stored.PasswordHash, "password must be hashed")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, _ := newTestService(0)
		_, err := svc.Signup(ctx, SignupParams{Email: "bob@example.com", Password: "secret99"})
		require.NoError(t, err)

		_, err = svc.Signup(ctx, SignupParams{Email: "Bob@Example.com", Password: "other999"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("empty password rejected", func(t *testing.T) {
		svc, _ := newTestService(0)
		_, err := svc.Signup(ctx, SignupParams{Email: "x@example.com"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *Service {
		t.Helper()
		svc, _ := newTestService(0)
		_, err := svc.Signup(ctx, SignupParams{Email: "carol@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		return svc
	}

	t.Run("valid credentials", func(t *testing.T) {
		svc := setup(t)
		result, err := svc.Login(ctx, "carol@example.com", "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		svc := setup(t)

		_, errUnknown := svc.Login(ctx, "nobody@example.com", "whatever1")
		_, errWrong := svc.Login(ctx, "carol@example.com", "battery-staple")

		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.True(t, dErrors.HasCode(errUnknown, dErrors.CodeUnauthorized))
		assert.True(t, dErrors.HasCode(errWrong, dErrors.CodeUnauthorized))
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("joins account with ledger quantity", func(t *testing.T) {
		svc, _ := newTestService(7)
		result, err := svc.Signup(ctx, SignupParams{Email: "dan@example.com", Password: "secret99"})
		require.NoError(t, err)

		profile, err := svc.Profile(ctx, result.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "dan@example.com", profile.User.Email)
		assert.Equal(t, 7, profile.PackQuantity)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _ := newTestService(0)
		_, err := svc.Profile(ctx, id.NewUserID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSubscriptionReader(t *testing.T) {
	ctx := context.Background()
	store := user.NewInMemoryStore()
	reader := SubscriptionReader{Store: store}

	userID := id.NewUserID()
	require.NoError(t, store.Create(ctx, user.User{ID: userID, Email: "e@example.com"}))

	subscribed, err := reader.IsSubscribed(ctx, userID)
	require.NoError(t, err)
	assert.False(t, subscribed)

	store.SetSubscribed(userID, true)
	subscribed, err = reader.IsSubscribed(ctx, userID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	// Unknown users are simply not subscribed.
	subscribed, err = reader.IsSubscribed(ctx, id.NewUserID())
	require.NoError(t, err)
	assert.False(t, subscribed)
}
