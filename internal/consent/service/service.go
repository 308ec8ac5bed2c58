// Package service implements the consent engine: creation gated by the credit
// ledger, the partner decision, dual-party biometric confirmation, history,
// and explicit payload decryption.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pacto/internal/consent"
	"pacto/internal/encryption"
	"pacto/internal/events"
	"pacto/internal/ledger"
	"pacto/internal/notification"
	"pacto/internal/platform/metrics"
	"pacto/internal/user"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/email"
	"pacto/pkg/platform/sentinel"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// UserDirectory resolves participants. Backed by the user store.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (user.User, error)
	FindByEmail(ctx context.Context, addr string) (user.User, error)
}

// CreditLedger is the slice of the ledger service the engine needs.
type CreditLedger interface {
	GetBalance(ctx context.Context, userID id.UserID) (ledger.Balance, error)
	ConsumeOneCredit(ctx context.Context, userID id.UserID) error
	AddCredits(ctx context.Context, userID id.UserID, amount int) (int, error)
}

// Notifier delivers in-app notifications to participants.
type Notifier interface {
	Emit(ctx context.Context, recipient id.UserID, typ notification.Type, message string, consentID id.ConsentID) error
}

// HistoryEntry is one consent in a participant's history with both parties'
// public profiles resolved. EncryptedData stays ciphertext on this path.
type HistoryEntry struct {
	Consent   consent.Consent
	Initiator user.PublicProfile
	Partner   user.PublicProfile
}

// Deps are the engine's collaborators. Events and Metrics may be nil.
type Deps struct {
	Store    consent.Store
	Users    UserDirectory
	Credits  CreditLedger
	Codec    encryption.Codec
	Notifier Notifier
	Events   events.Emitter
	Tx       UnitOfWork
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type Service struct {
	store    consent.Store
	users    UserDirectory
	credits  CreditLedger
	codec    encryption.Codec
	notifier Notifier
	events   events.Emitter
	tx       UnitOfWork
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    func() time.Time
}

type Option func(*Service)

// WithClock overrides the timestamp source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		store:    deps.Store,
		users:    deps.Users,
		credits:  deps.Credits,
		codec:    deps.Codec,
		notifier: deps.Notifier,
		events:   deps.Events,
		tx:       deps.Tx,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tracer:   otel.Tracer("pacto/internal/consent"),
		clock:    time.Now,
	}
	if s.events == nil {
		s.events = events.NopEmitter{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create resolves the partner, checks entitlement, and atomically consumes a
// pack credit (unless subscribed) together with persisting the consent. The
// partner is notified only after the unit of work commits.
func (s *Service) Create(ctx context.Context, initiatorID id.UserID, partnerEmail string, payload []byte) (consent.Consent, error) {
	ctx, span := s.tracer.Start(ctx, "consent.create",
		trace.WithAttributes(attribute.String("initiator_id", initiatorID.String())))
	defer span.End()

	initiator, err := s.users.FindByID(ctx, initiatorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return consent.Consent{}, dErrors.New(dErrors.CodeUnauthorized, "not authorized")
		}
		return consent.Consent{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolve initiator")
	}

	partner, err := s.users.FindByEmail(ctx, partnerEmail)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return consent.Consent{}, dErrors.New(dErrors.CodePartnerNotFound, "no user with that email")
		}
		return consent.Consent{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolve partner")
	}
	if partner.ID == initiatorID {
		return consent.Consent{}, dErrors.New(dErrors.CodeInvalidInput, "cannot create a consent with yourself")
	}

	balance, err := s.credits.GetBalance(ctx, initiatorID)
	if err != nil {
		return consent.Consent{}, err
	}
	if !balance.CanCreateConsent() {
		return consent.Consent{}, dErrors.New(dErrors.CodeInsufficientCredit, "no consent credits available")
	}

	ciphertext, err := s.codec.Encrypt(payload)
	if err != nil {
		return consent.Consent{}, dErrors.Wrap(err, dErrors.CodeInternal, "encrypt payload")
	}

	paymentStatus := consent.PaymentPending
	if balance.IsSubscribed {
		paymentStatus = consent.PaymentCompleted
	}
	c := consent.Consent{
		ID:                 id.NewConsentID(),
		UserID:             initiatorID,
		PartnerID:          partner.ID,
		Status:             consent.StatusPending,
		PaymentStatus:      paymentStatus,
		InitiatorConfirmed: true,
		EncryptedData:      ciphertext,
		CreatedAt:          s.clock(),
	}

	err = s.tx.RunInTx(ctx, initiatorID.String(), func(ctx context.Context) error {
		if !balance.IsSubscribed {
			// The guarded decrement is the double-spend defense; the balance
			// read above is only a fast path.
			if err := s.credits.ConsumeOneCredit(ctx, initiatorID); err != nil {
				return err
			}
		}
		if err := s.store.Create(ctx, c); err != nil {
			// The postgres unit of work rolls the decrement back; the
			// in-memory one has no rollback, so compensate explicitly.
			if !balance.IsSubscribed {
				if _, addErr := s.credits.AddCredits(ctx, initiatorID, 1); addErr != nil {
					s.logger.Error("restore credit after failed create", "user_id", initiatorID.String(), "error", addErr)
				}
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist consent")
		}
		return nil
	})
	if err != nil {
		return consent.Consent{}, err
	}

	message := fmt.Sprintf("New consent request from %s", email.DisplayName(initiator.FirstName, initiator.Email))
	if err := s.notifier.Emit(ctx, partner.ID, notification.TypeConsentRequest, message, c.ID); err != nil {
		s.logger.Error("emit consent request notification", "consent_id", c.ID.String(), "error", err)
	}

	s.events.Emit(events.Event{
		Type:       events.TypeConsentCreated,
		ConsentID:  c.ID,
		ActorID:    initiatorID,
		OccurredAt: s.clock(),
	})
	if s.metrics != nil {
		s.metrics.ConsentsCreated.Inc()
	}
	return c, nil
}

// AcceptByPartner records the partner's acceptance. Partner-only; the status
// decision is one-shot.
func (s *Service) AcceptByPartner(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error) {
	return s.decide(ctx, actingUserID, consentID, consent.StatusAccepted, true, events.TypeConsentAccepted)
}

// RefuseByPartner records the partner's refusal. The partner confirmation
// flag is explicitly reset: a refusal revokes any prior confirmation.
func (s *Service) RefuseByPartner(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error) {
	return s.decide(ctx, actingUserID, consentID, consent.StatusRefused, false, events.TypeConsentRefused)
}

func (s *Service) decide(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID, status consent.Status, partnerConfirmed bool, eventType events.Type) (consent.Consent, error) {
	c, err := s.load(ctx, consentID)
	if err != nil {
		return consent.Consent{}, err
	}
	if actingUserID != c.PartnerID {
		return consent.Consent{}, dErrors.New(dErrors.CodeUnauthorized, "not authorized")
	}
	if c.Status != consent.StatusPending {
		return consent.Consent{}, dErrors.New(dErrors.CodeConflict, "consent already decided")
	}

	if err := s.store.SetPartnerDecision(ctx, consentID, status, partnerConfirmed); err != nil {
		return consent.Consent{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist partner decision")
	}
	c.Status = status
	c.PartnerConfirmed = partnerConfirmed

	s.events.Emit(events.Event{
		Type:       eventType,
		ConsentID:  consentID,
		ActorID:    actingUserID,
		OccurredAt: s.clock(),
	})
	return c, nil
}

// ConfirmBiometric sets the caller's confirmation flag. When both parties
// have confirmed, validation fires exactly once: that call stamps
// biometricValidatedAt and notifies the other party, naming the confirming
// role. Safe under concurrent calls from both parties.
func (s *Service) ConfirmBiometric(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error) {
	ctx, span := s.tracer.Start(ctx, "consent.confirm_biometric",
		trace.WithAttributes(attribute.String("consent_id", consentID.String())))
	defer span.End()

	c, err := s.load(ctx, consentID)
	if err != nil {
		return consent.Consent{}, err
	}
	role, ok := c.RoleOf(actingUserID)
	if !ok {
		return consent.Consent{}, dErrors.New(dErrors.CodeUnauthorized, "not authorized")
	}

	res, err := s.store.Confirm(ctx, consentID, role, s.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return consent.Consent{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
		}
		return consent.Consent{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist confirmation")
	}

	if res.Fired {
		recipient := res.Consent.PartnerID
		if role == consent.RolePartner {
			recipient = res.Consent.UserID
		}
		message := fmt.Sprintf("The %s confirmed the consent", role)
		if err := s.notifier.Emit(ctx, recipient, notification.TypeBiometricConfirmation, message, consentID); err != nil {
			s.logger.Error("emit biometric confirmation notification", "consent_id", consentID.String(), "error", err)
		}

		s.events.Emit(events.Event{
			Type:       events.TypeBiometricValidated,
			ConsentID:  consentID,
			ActorID:    actingUserID,
			OccurredAt: s.clock(),
		})
		if s.metrics != nil {
			s.metrics.BiometricValidations.Inc()
		}
	}
	return res.Consent, nil
}

// SoftDelete hides the consent from the initiator's history. Initiator-only;
// the partner's view is unaffected.
func (s *Service) SoftDelete(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) error {
	c, err := s.load(ctx, consentID)
	if err != nil {
		return err
	}
	if actingUserID != c.UserID {
		return dErrors.New(dErrors.CodeUnauthorized, "not authorized")
	}
	if err := s.store.MarkDeletedByInitiator(ctx, consentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mark consent deleted")
	}
	return nil
}

// ListHistory returns consents where the caller is a party, newest first,
// with both parties' public profiles. Payloads stay encrypted on this path.
func (s *Service) ListHistory(ctx context.Context, userID id.UserID, statusFilter string, skip, take int) ([]HistoryEntry, error) {
	status, err := consent.ParseStatusFilter(statusFilter)
	if err != nil {
		return nil, err
	}
	if skip < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "skip must not be negative")
	}
	if take <= 0 {
		take = defaultHistoryLimit
	}
	if take > maxHistoryLimit {
		take = maxHistoryLimit
	}

	consents, err := s.store.ListByParticipant(ctx, userID, status, skip, take)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consents")
	}

	profiles := make(map[id.UserID]user.PublicProfile)
	entries := make([]HistoryEntry, 0, len(consents))
	for _, c := range consents {
		entries = append(entries, HistoryEntry{
			Consent:   c,
			Initiator: s.profile(ctx, profiles, c.UserID),
			Partner:   s.profile(ctx, profiles, c.PartnerID),
		})
	}
	return entries, nil
}

func (s *Service) profile(ctx context.Context, cache map[id.UserID]user.PublicProfile, userID id.UserID) user.PublicProfile {
	if p, ok := cache[userID]; ok {
		return p
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		// A dangling participant reference degrades to an empty profile
		// rather than failing the whole history read.
		s.logger.Warn("resolve participant profile", "user_id", userID.String(), "error", err)
		cache[userID] = user.PublicProfile{ID: userID}
		return cache[userID]
	}
	cache[userID] = u.Public()
	return cache[userID]
}

// DecryptPayload opens the consent's ciphertext for a participant. Disclosure
// is an explicit capability, never part of a list read.
func (s *Service) DecryptPayload(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) ([]byte, error) {
	c, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if _, ok := c.RoleOf(actingUserID); !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authorized")
	}
	plaintext, err := s.codec.Decrypt(c.EncryptedData)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decrypt payload")
	}
	return plaintext, nil
}

func (s *Service) load(ctx context.Context, consentID id.ConsentID) (consent.Consent, error) {
	c, err := s.store.FindByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return consent.Consent{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
		}
		return consent.Consent{}, dErrors.Wrap(err, dErrors.CodeInternal, "load consent")
	}
	return c, nil
}
