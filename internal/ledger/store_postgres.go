package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "pacto/pkg/domain"
	"pacto/pkg/platform/sentinel"
	txcontext "pacto/pkg/platform/tx"
)

// PostgresStore persists ledger entries in the pack_credits table. All
// mutations are single guarded statements so concurrent spenders serialize on
// the row without explicit locking. Operations join an open transaction when
// the caller put one in context.
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

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (Entry, error) {
	var entry Entry
	var uid string
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT user_id, quantity, purchased_at
		FROM pack_credits
		WHERE user_id = $1
	`, userID.String()).Scan(&uid, &entry.Quantity, &entry.PurchasedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	entry.UserID = userID
	return entry, nil
}

func (s *PostgresStore) ConsumeOne(ctx context.Context, userID id.UserID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE pack_credits
		SET quantity = quantity - 1
		WHERE user_id = $1 AND quantity >= 1
	`, userID.String())
	if err != nil {
		return fmt.Errorf("consume credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume credit: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInsufficient
	}
	return nil
}

func (s *PostgresStore) AddCredits(ctx context.Context, userID id.UserID, amount int, purchasedAt time.Time) (int, error) {
	var quantity int
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO pack_credits (user_id, quantity, purchased_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			quantity = pack_credits.quantity + EXCLUDED.quantity,
			purchased_at = EXCLUDED.purchased_at
		RETURNING quantity
	`, userID.String(), amount, purchasedAt).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}
	return quantity, nil
}
