package service

import (
	"context"
	"errors"
	"time"

	"pacto/internal/ledger"
	"pacto/internal/platform/metrics"
	"pacto/internal/user"
	"pacto/internal/user/secrets"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/sentinel"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, email string, expiresIn time.Duration) (string, error)
}

// BalanceReader exposes the ledger balance for the profile endpoint.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID id.UserID) (ledger.Balance, error)
}

// Service handles account creation, authentication, and profile reads.
type Service struct {
	store    user.Store
	tokens   TokenIssuer
	balances BalanceReader
	metrics  *metrics.Metrics
	tokenTTL time.Duration
	clock    func() time.Time
}

func NewService(store user.Store, tokens TokenIssuer, balances BalanceReader, m *metrics.Metrics, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		balances: balances,
		metrics:  m,
		tokenTTL: tokenTTL,
		clock:    time.Now,
	}
}

// SignupParams carries validated signup input. Transport validates shape
// (email format, password length) before this is constructed.
type SignupParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	PhotoURL    string
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	Token string
	User  user.User
}

// Profile joins the account with its ledger balance.
type Profile struct {
	User         user.User
	PackQuantity int
}

func (s *Service) Signup(ctx context.Context, params SignupParams) (AuthResult, error) {
	hash, err := secrets.Hash(params.Password)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.clock()
	account := user.User{
		ID:           id.NewUserID(),
		Email:        params.Email,
		PasswordHash: hash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		DateOfBirth:  params.DateOfBirth,
		PhotoURL:     params.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return AuthResult{}, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "create account")
	}

	token, err := s.tokens.GenerateAccessToken(account.ID, account.Email, s.tokenTTL)
	if err != nil {
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "issue token")
	}
	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	return AuthResult{Token: token, User: account}, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// return the same generic unauthorized error.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return AuthResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "find account")
	}
	if err := secrets.Verify(password, account.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return AuthResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "verify password")
	}

	token, err := s.tokens.GenerateAccessToken(account.ID, account.Email, s.tokenTTL)
	if err != nil {
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "issue token")
	}
	return AuthResult{Token: token, User: account}, nil
}

func (s *Service) Profile(ctx context.Context, userID id.UserID) (Profile, error) {
	account, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Profile{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "find account")
	}
	balance, err := s.balances.GetBalance(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: account, PackQuantity: balance.Quantity}, nil
}

// SubscriptionReader adapts the user store to the ledger's SubscriptionSource.
type SubscriptionReader struct {
	Store user.Store
}

func (r SubscriptionReader) IsSubscribed(ctx context.Context, userID id.UserID) (bool, error) {
	account, err := r.Store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.IsSubscribed, nil
}
