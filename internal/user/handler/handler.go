// Package handler exposes signup, login, and the profile endpoint. Signup and
// login are the only unauthenticated routes in the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pacto/internal/platform/middleware"
	"pacto/internal/user"
	"pacto/internal/user/service"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/platform/httputil"
)

// Service defines the account operations the handler exposes.
type Service interface {
	Signup(ctx context.Context, params service.SignupParams) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Profile(ctx context.Context, userID id.UserID) (service.Profile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/signup", h.HandleSignup)
	r.Post("/auth/login", h.HandleLogin)
}

// Register mounts the authenticated profile endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/user/info", h.HandleUserInfo)
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the account's own view of itself. The password hash never
// appears on the wire.
type UserResponse struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	DateOfBirth         *time.Time `json:"dateOfBirth,omitempty"`
	PhotoURL            string     `json:"photoUrl,omitempty"`
	IsSubscribed        bool       `json:"isSubscribed"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate,omitempty"`
	Score               int        `json:"score"`
	Badges              []string   `json:"badges"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// ProfileResponse joins the account with its credit balance.
type ProfileResponse struct {
	User         UserResponse `json:"user"`
	PackQuantity int          `json:"packQuantity"`
}

func fromUser(u user.User) UserResponse {
	badges := u.Badges
	if badges == nil {
		badges = []string{}
	}
	return UserResponse{
		ID:                  u.ID.String(),
		Email:               u.Email,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		DateOfBirth:         u.DateOfBirth,
		PhotoURL:            u.PhotoURL,
		IsSubscribed:        u.IsSubscribed,
		SubscriptionEndDate: u.SubscriptionEndDate,
		Score:               u.Score,
		Badges:              badges,
		CreatedAt:           u.CreatedAt,
	}
}

// HandleSignup handles POST /api/auth/signup.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Signup(ctx, req.Params())
	if err != nil {
		h.logger.WarnContext(ctx, "signup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account created",
		"request_id", requestID,
		"user_id", result.User.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, AuthResponse{Token: result.Token, User: fromUser(result.User)})
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AuthResponse{Token: result.Token, User: fromUser(result.User)})
}

// HandleUserInfo handles GET /api/user/info.
func (h *Handler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.service.Profile(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ProfileResponse{
		User:         fromUser(profile.User),
		PackQuantity: profile.PackQuantity,
	})
}
