package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	id "pacto/pkg/domain"
	txcontext "pacto/pkg/platform/tx"
)

// PostgresStore persists notifications in the notifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, n Notification) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message, consent_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID.String(), n.UserID.String(), string(n.Type), n.Message,
		n.ConsentID.String(), n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnread(ctx context.Context, userID id.UserID) ([]Notification, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, type, message, consent_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		var nid, uid, cid, typ string
		if err := rows.Scan(&nid, &uid, &typ, &n.Message, &cid, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notificationID, err := id.ParseNotificationID(nid)
		if err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		ownerID, err := id.ParseUserID(uid)
		if err != nil {
			return nil, fmt.Errorf("scan notification user id: %w", err)
		}
		consentID, err := id.ParseConsentID(cid)
		if err != nil {
			return nil, fmt.Errorf("scan notification consent id: %w", err)
		}
		n.ID = notificationID
		n.UserID = ownerID
		n.ConsentID = consentID
		n.Type = Type(typ)
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID id.UserID, ids []id.NotificationID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, nid := range ids {
		raw[i] = nid.String()
	}
	// Ownership filter in the WHERE clause: foreign ids are skipped, not errored.
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND id = ANY($2)
	`, userID.String(), pq.Array(raw))
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
