package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. Registered once at
// startup on the default registry.
type Metrics struct {
	LoginAttempts    *prometheus.CounterVec
	Lockouts         prometheus.Counter
	TokenValidations *prometheus.CounterVec
	SessionsExpired  prometheus.Counter
}

// NewMetrics registers the collectors on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors on an explicit registerer. Tests
// pass a fresh registry so repeated construction cannot collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		Lockouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Lockouts triggered by the throttle ledger.",
		}),
		TokenValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "auth",
			Name:      "token_validations_total",
			Help:      "Bearer token validations by result.",
		}, []string{"result"}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "auth",
			Name:      "sessions_expired_total",
			Help:      "Sessions rejected by the idle freshness guard.",
		}),
	}
}

// Login outcomes recorded on login_attempts_total.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeLocked   = "locked"
)
