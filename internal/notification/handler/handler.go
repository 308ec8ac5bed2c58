// Package handler exposes the notification endpoints: list unread, mark read.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pacto/internal/notification"
	"pacto/internal/platform/middleware"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/httputil"
	stringsutil "pacto/pkg/platform/strings"
)

// Service defines the notification operations the handler exposes.
type Service interface {
	ListUnread(ctx context.Context, userID id.UserID) ([]notification.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, ids []id.NotificationID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts notification endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications/unread", h.HandleListUnread)
	r.Put("/notifications/mark-as-read", h.HandleMarkRead)
}

// NotificationResponse is the wire shape of one notification.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	ConsentID string    `json:"consentId"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarkReadRequest is the HTTP request body for PUT /api/notifications/mark-as-read.
type MarkReadRequest struct {
	NotificationIDs []string `json:"notificationIds"`

	parsed []id.NotificationID
}

// Validate parses the id list. Duplicates collapse and an empty list is a
// valid no-op.
func (r *MarkReadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	deduped := stringsutil.DedupeAndTrim(r.NotificationIDs)
	r.parsed = make([]id.NotificationID, 0, len(deduped))
	for _, raw := range deduped {
		parsed, err := id.ParseNotificationID(raw)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "notificationIds must be valid ids")
		}
		r.parsed = append(r.parsed, parsed)
	}
	return nil
}

// HandleListUnread handles GET /api/notifications/unread.
func (h *Handler) HandleListUnread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	unread, err := h.service.ListUnread(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]NotificationResponse, 0, len(unread))
	for _, n := range unread {
		items = append(items, NotificationResponse{
			ID:        n.ID.String(),
			Type:      string(n.Type),
			Message:   n.Message,
			ConsentID: n.ConsentID.String(),
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

// HandleMarkRead handles PUT /api/notifications/mark-as-read. Ids the caller
// does not own are silently ignored.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.principal(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[MarkReadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.MarkRead(ctx, userID, req.parsed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) principal(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
