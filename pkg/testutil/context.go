// Package testutil provides helpers shared by handler tests.
package testutil

import (
	"context"
	"net/http"

	"pacto/internal/platform/middleware"
	id "pacto/pkg/domain"
)

// WithUserID injects a user ID into the request context the way the auth
// middleware does for authenticated requests. Invalid IDs are silently
// ignored so tests can also exercise the unauthenticated path.
func WithUserID(req *http.Request, userID string) *http.Request {
	if _, err := id.ParseUserID(userID); err != nil {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
	return req.WithContext(ctx)
}

// WithRequestID injects a request ID into the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}
