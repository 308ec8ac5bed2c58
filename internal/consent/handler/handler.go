// Package handler wires the consent endpoints to the consent engine. All
// routes require an authenticated principal; the handler never sees
// credentials, only the user id the auth middleware injected.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pacto/internal/consent"
	"pacto/internal/consent/service"
	"pacto/internal/platform/middleware"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/httputil"
)

// Service defines the consent engine operations the handler exposes.
type Service interface {
	Create(ctx context.Context, initiatorID id.UserID, partnerEmail string, payload []byte) (consent.Consent, error)
	AcceptByPartner(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error)
	RefuseByPartner(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error)
	ConfirmBiometric(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error)
	SoftDelete(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) error
	ListHistory(ctx context.Context, userID id.UserID, statusFilter string, skip, take int) ([]service.HistoryEntry, error)
	DecryptPayload(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) ([]byte, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts consent endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.HandleCreate)
	r.Get("/consent/history", h.HandleHistory)
	r.Delete("/consent/{id}", h.HandleDelete)
	r.Put("/consent/{id}/accept-partner", h.HandleAccept)
	r.Put("/consent/{id}/refuse-partner", h.HandleRefuse)
	r.Put("/consent/{id}/confirm-biometric", h.HandleConfirmBiometric)
	r.Get("/consent/{id}/payload", h.HandlePayload)
}

// HandleCreate handles POST /api/consent.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, userID, req.PartnerEmail, req.Data)
	if err != nil {
		h.logger.WarnContext(ctx, "create consent failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consent created",
		"request_id", requestID,
		"consent_id", c.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromConsent(c))
}

// HandleHistory handles GET /api/consent/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	take, err := queryInt(r, "take", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.ListHistory(ctx, userID, r.URL.Query().Get("status"), skip, take)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromHistory(entries))
}

// HandleAccept handles PUT /api/consent/{id}/accept-partner.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.AcceptByPartner)
}

// HandleRefuse handles PUT /api/consent/{id}/refuse-partner.
func (h *Handler) HandleRefuse(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.RefuseByPartner)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op func(context.Context, id.UserID, id.ConsentID) (consent.Consent, error)) {
	ctx := r.Context()

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}

	c, err := op(ctx, userID, consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromConsent(c))
}

// HandleConfirmBiometric handles PUT /api/consent/{id}/confirm-biometric.
func (h *Handler) HandleConfirmBiometric(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}

	c, err := h.service.ConfirmBiometric(ctx, userID, consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if c.BiometricValidated {
		h.logger.InfoContext(ctx, "consent biometric validated",
			"request_id", requestID,
			"consent_id", consentID.String(),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, fromConsent(c))
}

// HandleDelete handles DELETE /api/consent/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}

	if err := h.service.SoftDelete(ctx, userID, consentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandlePayload handles GET /api/consent/{id}/payload. Disclosure is an
// explicit request, never part of a list read.
func (h *Handler) HandlePayload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}

	plaintext, err := h.service.DecryptPayload(ctx, userID, consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PayloadResponse{Data: plaintext})
}

func (h *Handler) principal(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) consentID(w http.ResponseWriter, r *http.Request) (id.ConsentID, bool) {
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid consent id"))
		return id.ConsentID{}, false
	}
	return consentID, true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be an integer")
	}
	return n, nil
}
