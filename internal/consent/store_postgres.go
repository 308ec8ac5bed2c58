package consent

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

const consentColumns = `
	id, user_id, partner_id, status, payment_status,
	initiator_confirmed, partner_confirmed,
	biometric_validated, biometric_validated_at,
	deleted_by_initiator, deleted_by_partner, archived,
	encrypted_data, created_at`

// PostgresStore persists consents. Mutations are guarded single statements
// checked via RowsAffected, so two concurrent confirmations serialize on the
// row and only one of them crosses the validation edge. Operations join an
// open transaction when the caller put one in context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c Consent) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO consents (
			id, user_id, partner_id, status, payment_status,
			initiator_confirmed, partner_confirmed,
			biometric_validated, biometric_validated_at,
			deleted_by_initiator, deleted_by_partner, archived,
			encrypted_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		c.ID.String(), c.UserID.String(), c.PartnerID.String(),
		string(c.Status), string(c.PaymentStatus),
		c.InitiatorConfirmed, c.PartnerConfirmed,
		c.BiometricValidated, c.BiometricValidatedAt,
		c.DeletedByInitiator, c.DeletedByPartner, c.Archived,
		c.EncryptedData, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (Consent, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consents
		WHERE id = $1
	`, consentID.String())
	c, err := scanConsent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Consent{}, sentinel.ErrNotFound
		}
		return Consent{}, fmt.Errorf("find consent: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) SetPartnerDecision(ctx context.Context, consentID id.ConsentID, status Status, partnerConfirmed bool) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE consents
		SET status = $2, partner_confirmed = $3
		WHERE id = $1
	`, consentID.String(), string(status), partnerConfirmed)
	if err != nil {
		return fmt.Errorf("set partner decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set partner decision: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Confirm(ctx context.Context, consentID id.ConsentID, role Role, at time.Time) (ConfirmResult, error) {
	exec := s.execer(ctx)

	flag := "initiator_confirmed"
	if role == RolePartner {
		flag = "partner_confirmed"
	}
	res, err := exec.ExecContext(ctx,
		`UPDATE consents SET `+flag+` = TRUE WHERE id = $1`,
		consentID.String())
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm consent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm consent: %w", err)
	}
	if affected == 0 {
		return ConfirmResult{}, sentinel.ErrNotFound
	}

	// Guarded edge transition. The NOT biometric_validated predicate makes the
	// row update succeed for exactly one of two racing confirmations.
	res, err = exec.ExecContext(ctx, `
		UPDATE consents
		SET biometric_validated = TRUE, biometric_validated_at = $2
		WHERE id = $1
		  AND initiator_confirmed AND partner_confirmed
		  AND NOT biometric_validated
	`, consentID.String(), at)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm consent: %w", err)
	}
	fired, err := res.RowsAffected()
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm consent: %w", err)
	}

	c, err := s.FindByID(ctx, consentID)
	if err != nil {
		return ConfirmResult{}, err
	}
	return ConfirmResult{Consent: c, Fired: fired == 1}, nil
}

func (s *PostgresStore) MarkDeletedByInitiator(ctx context.Context, consentID id.ConsentID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE consents
		SET deleted_by_initiator = TRUE
		WHERE id = $1
	`, consentID.String())
	if err != nil {
		return fmt.Errorf("mark consent deleted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark consent deleted: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByParticipant(ctx context.Context, userID id.UserID, status *Status, offset, limit int) ([]Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE ((user_id = $1 AND NOT deleted_by_initiator)
		    OR (partner_id = $1 AND NOT deleted_by_partner))`
	args := []any{userID.String()}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC OFFSET $%d`, len(args)+1)
	args = append(args, offset)
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var consents []Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("list consents: %w", err)
		}
		consents = append(consents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	return consents, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (Consent, error) {
	var (
		c                    Consent
		rawID, rawUser       string
		rawPartner           string
		status, payStatus    string
		biometricValidatedAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &rawUser, &rawPartner, &status, &payStatus,
		&c.InitiatorConfirmed, &c.PartnerConfirmed,
		&c.BiometricValidated, &biometricValidatedAt,
		&c.DeletedByInitiator, &c.DeletedByPartner, &c.Archived,
		&c.EncryptedData, &c.CreatedAt,
	)
	if err != nil {
		return Consent{}, err
	}
	if c.ID, err = id.ParseConsentID(rawID); err != nil {
		return Consent{}, err
	}
	if c.UserID, err = id.ParseUserID(rawUser); err != nil {
		return Consent{}, err
	}
	if c.PartnerID, err = id.ParseUserID(rawPartner); err != nil {
		return Consent{}, err
	}
	c.Status = Status(status)
	c.PaymentStatus = PaymentStatus(payStatus)
	if biometricValidatedAt.Valid {
		t := biometricValidatedAt.Time
		c.BiometricValidatedAt = &t
	}
	return c, nil
}
