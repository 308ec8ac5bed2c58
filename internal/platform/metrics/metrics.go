package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated         prometheus.Counter
	ConsentsCreated      prometheus.Counter
	CreditsConsumed      prometheus.Counter
	CreditsAdded         prometheus.Counter
	BiometricValidations prometheus.Counter
	NotificationsEmitted *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// registry so multiple instances can coexist in one process.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pacto_users_created_total",
			Help: "Total number of users created in the system",
		}),
		ConsentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pacto_consents_created_total",
			Help: "Total number of consents created",
		}),
		CreditsConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pacto_pack_credits_consumed_total",
			Help: "Total pack credits consumed by consent creation",
		}),
		CreditsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "pacto_pack_credits_added_total",
			Help: "Total pack credits added by confirmed payments",
		}),
		BiometricValidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "pacto_biometric_validations_total",
			Help: "Total consents that reached biometric validation",
		}),
		NotificationsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pacto_notifications_emitted_total",
			Help: "Total notifications emitted, by type",
		}, []string{"type"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacto_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
