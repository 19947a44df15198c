// Package metrics holds the Prometheus collectors for admin authentication.
// A nil *Metrics is valid and records nothing, so services and tests can run
// without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes used as the "outcome" label.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeDisabled = "disabled"
	OutcomeError    = "error"
)

// Metrics holds Prometheus collectors for auth operations.
type Metrics struct {
	Logins            *prometheus.CounterVec
	Verifications     *prometheus.CounterVec
	SessionsExpired   prometheus.Counter
	SessionsRevoked   prometheus.Counter
	AccountsCreated   prometheus.Counter
	PasswordResets    prometheus.Counter
	GateRejections    *prometheus.CounterVec
	LoginDurationSecs prometheus.Histogram
}

// New registers auth collectors on reg and returns them. Each server gets
// its own registry so tests can build several side by side.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "t2t_admin_logins_total",
			Help: "Admin login attempts by outcome",
		}, []string{"outcome"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "t2t_admin_session_verifications_total",
			Help: "Session token verifications by outcome",
		}, []string{"outcome"}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "t2t_admin_sessions_expired_total",
			Help: "Expired sessions deleted, on access or by purge",
		}),
		SessionsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "t2t_admin_sessions_revoked_total",
			Help: "Sessions deleted by logout or revocation",
		}),
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "t2t_admin_accounts_created_total",
			Help: "Admin accounts provisioned",
		}),
		PasswordResets: f.NewCounter(prometheus.CounterOpts{
			Name: "t2t_admin_password_resets_total",
			Help: "Admin password resets",
		}),
		GateRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "t2t_admin_gate_rejections_total",
			Help: "Requests rejected by the authentication gate, by reason",
		}, []string{"reason"}),
		LoginDurationSecs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "t2t_admin_login_duration_seconds",
			Help:    "Duration of login attempts, dominated by bcrypt",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5},
		}),
	}
}

func (m *Metrics) ObserveLogin(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
	m.LoginDurationSecs.Observe(seconds)
}

func (m *Metrics) IncrementVerifications(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddSessionsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpired.Add(float64(n))
}

func (m *Metrics) AddSessionsRevoked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsRevoked.Add(float64(n))
}

func (m *Metrics) IncrementAccountsCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

func (m *Metrics) IncrementPasswordResets() {
	if m == nil {
		return
	}
	m.PasswordResets.Inc()
}

func (m *Metrics) IncrementGateRejections(reason string) {
	if m == nil {
		return
	}
	m.GateRejections.WithLabelValues(reason).Inc()
}
