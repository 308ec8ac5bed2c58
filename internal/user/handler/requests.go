package handler

import (
	"strings"
	"time"

	"pacto/internal/user/service"
	dErrors "pacto/pkg/domain-errors"
)

const minPasswordLength = 8

// SignupRequest is the HTTP request body for POST /api/auth/signup.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	PhotoURL    string `json:"photoUrl"`

	parsedDOB *time.Time
}

// Validate validates and normalizes the request.
func (r *SignupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(r.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if r.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", r.DateOfBirth)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "dateOfBirth must be YYYY-MM-DD")
		}
		r.parsedDOB = &dob
	}
	return nil
}

// Params converts the validated request into service input.
func (r *SignupRequest) Params() service.SignupParams {
	return service.SignupParams{
		Email:       r.Email,
		Password:    r.Password,
		FirstName:   strings.TrimSpace(r.FirstName),
		LastName:    strings.TrimSpace(r.LastName),
		DateOfBirth: r.parsedDOB,
		PhotoURL:    strings.TrimSpace(r.PhotoURL),
	}
}

// LoginRequest is the HTTP request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}
