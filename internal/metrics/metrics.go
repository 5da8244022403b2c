package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultDenied   = "denied"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
	ResultNotFound = "not_found"
	ResultExpired  = "expired"
)

// Metrics holds the Prometheus counters for every authentication outcome.
type Metrics struct {
	Registrations      *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	OAuthSignIns       *prometheus.CounterVec
	SessionProjections *prometheus.CounterVec
	TokenVerifications *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptshare_registrations_total",
				Help: "Total number of registration attempts",
			},
			[]string{"result"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptshare_logins_total",
				Help: "Total number of credential login attempts",
			},
			[]string{"result"},
		),
		OAuthSignIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptshare_oauth_signins_total",
				Help: "Total number of OAuth sign-in callbacks",
			},
			[]string{"provider", "result"},
		),
		SessionProjections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptshare_session_projections_total",
				Help: "Total number of session lookups",
			},
			[]string{"result"},
		),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptshare_token_verifications_total",
				Help: "Total number of bearer token verifications",
			},
			[]string{"result"},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.Registrations,
		m.Logins,
		m.OAuthSignIns,
		m.SessionProjections,
		m.TokenVerifications,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
