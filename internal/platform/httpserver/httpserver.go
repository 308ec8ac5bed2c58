// Package httpserver builds the API server with timeouts tuned for small
// JSON requests from mobile clients.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps the router in an http.Server. Per-request deadlines live in the
// router's timeout middleware; the server-level timeouts here bound slow or
// idle connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
