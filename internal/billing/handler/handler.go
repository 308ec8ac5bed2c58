// Package handler exposes the purchase endpoints: the authenticated
// payment-sheet route and the public provider webhook.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pacto/internal/billing"
	"pacto/internal/platform/middleware"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/httputil"
)

const eventPaymentSucceeded = "payment_intent.succeeded"

// Service defines the billing operations the handler exposes.
type Service interface {
	CreatePaymentSheet(ctx context.Context, userID id.UserID, quantity int) (billing.PaymentSheet, error)
	HandlePaymentSucceeded(ctx context.Context, eventID string, userID id.UserID, quantity int) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated purchase endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/packs/payment-sheet", h.HandlePaymentSheet)
}

// RegisterPublic mounts the provider webhook. The provider authenticates via
// its signature scheme at the edge, not via user tokens.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/payments/webhook", h.HandleWebhook)
}

// PaymentSheetRequest is the HTTP request body for POST /api/packs/payment-sheet.
type PaymentSheetRequest struct {
	Quantity int `json:"quantity"`
}

func (r *PaymentSheetRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Quantity < 1 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be at least 1")
	}
	return nil
}

// WebhookRequest mirrors the provider's event envelope. Metadata values are
// strings on the wire; PackQuantity is parsed during validation.
type WebhookRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata struct {
				UserID       string `json:"userId"`
				PackQuantity string `json:"packQuantity"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`

	parsedUserID   id.UserID
	parsedQuantity int
}

func (r *WebhookRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ID == "" || r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "event id and type are required")
	}
	if r.Type != eventPaymentSucceeded {
		// Other event types are acknowledged without parsing metadata.
		return nil
	}

	userID, err := id.ParseUserID(r.Data.Object.Metadata.UserID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "metadata.userId must be a valid user id")
	}
	quantity, err := strconv.Atoi(r.Data.Object.Metadata.PackQuantity)
	if err != nil || quantity < 1 {
		return dErrors.New(dErrors.CodeValidation, "metadata.packQuantity must be a positive integer")
	}
	r.parsedUserID = userID
	r.parsedQuantity = quantity
	return nil
}

// HandlePaymentSheet handles POST /api/packs/payment-sheet.
func (h *Handler) HandlePaymentSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[PaymentSheetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sheet, err := h.service.CreatePaymentSheet(ctx, userID, req.Quantity)
	if err != nil {
		h.logger.WarnContext(ctx, "create payment sheet failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sheet)
}

// HandleWebhook handles POST /api/payments/webhook. Unknown event types are
// acknowledged so the provider stops redelivering them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[WebhookRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if req.Type != eventPaymentSucceeded {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.service.HandlePaymentSucceeded(ctx, req.ID, req.parsedUserID, req.parsedQuantity); err != nil {
		h.logger.ErrorContext(ctx, "apply payment event failed",
			"request_id", requestID,
			"event_id", req.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
