// Package httptransport assembles the HTTP surface: middleware chain, public
// auth and webhook routes, and the authenticated API under /api.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	billinghandler "pacto/internal/billing/handler"
	consenthandler "pacto/internal/consent/handler"
	notificationhandler "pacto/internal/notification/handler"
	"pacto/internal/platform/metrics"
	"pacto/internal/platform/middleware"
	userhandler "pacto/internal/user/handler"
	"pacto/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router mounts. Nil health checkers and metrics
// are skipped.
type Deps struct {
	Users         *userhandler.Handler
	Consents      *consenthandler.Handler
	Notifications *notificationhandler.Handler
	Billing       *billinghandler.Handler

	JWTValidator middleware.JWTValidator
	Logger       *slog.Logger
	Metrics      *metrics.Metrics

	HealthChecks map[string]HealthChecker
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleHealth(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)

		// Public: signup, login, and the provider webhook.
		deps.Users.RegisterPublic(api)
		deps.Billing.RegisterPublic(api)

		api.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
			deps.Users.Register(authed)
			deps.Consents.Register(authed)
			deps.Notifications.Register(authed)
			deps.Billing.Register(authed)
		})
	})

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		detail := make(map[string]string, len(checks)+1)
		detail["status"] = "ok"
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				detail[name] = "unavailable"
				detail["status"] = "degraded"
				continue
			}
			detail[name] = "ok"
		}
		httputil.WriteJSON(w, status, detail)
	}
}
