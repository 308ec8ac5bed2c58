package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "pacto/pkg/domain"
	"pacto/pkg/platform/sentinel"
	txcontext "pacto/pkg/platform/tx"
)

// PostgresStore persists users in the users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `
	id, email, password_hash, first_name, last_name, date_of_birth, photo_url,
	provider_customer_id, is_subscribed, subscription_end_date, score, badges,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, user User) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		user.ID.String(), user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.DateOfBirth, user.PhotoURL,
		user.ProviderCustomerID, user.IsSubscribed, user.SubscriptionEndDate,
		user.Score, pq.Array(user.Badges), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (User, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, userID.String())
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = lower($1)
	`, email)
	return scanUser(row)
}

func (s *PostgresStore) SetProviderCustomerID(ctx context.Context, userID id.UserID, customerID string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE users SET provider_customer_id = $2, updated_at = now()
		WHERE id = $1
	`, userID.String(), customerID)
	if err != nil {
		return fmt.Errorf("set provider customer id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set provider customer id: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var uid string
	err := row.Scan(
		&uid, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.DateOfBirth, &u.PhotoURL,
		&u.ProviderCustomerID, &u.IsSubscribed, &u.SubscriptionEndDate,
		&u.Score, pq.Array(&u.Badges), &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, sentinel.ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := id.ParseUserID(uid)
	if err != nil {
		return User{}, fmt.Errorf("scan user id: %w", err)
	}
	u.ID = parsed
	return u, nil
}
