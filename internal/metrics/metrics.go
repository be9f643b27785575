// Package metrics holds the prometheus counters for account and session events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Operation label values
const (
	OpSignup         = "signup"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpForgotPassword = "forgot_password"
	OpResetPassword  = "reset_password"
	OpUpdatePassword = "update_password"
)

// Metrics contains the custom prometheus metrics of the service.
// A nil *Metrics records nothing.
type Metrics struct {
	AuthEvents        *prometheus.CounterVec
	ResetEmails       *prometheus.CounterVec
	SessionRejections *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hideme_auth_events_total",
				Help: "Total number of account operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ResetEmails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hideme_reset_emails_total",
				Help: "Total number of password reset mails by delivery outcome",
			},
			[]string{"outcome"},
		),
		SessionRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hideme_session_rejections_total",
				Help: "Total number of rejected sessions by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.AuthEvents)
	reg.MustRegister(m.ResetEmails)
	reg.MustRegister(m.SessionRejections)

	return m
}

// NewRegistry returns a registry with the Go and process collectors installed.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Handler serves the registry in the prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// AuthEvent counts one account operation.
func (m *Metrics) AuthEvent(operation string, err error) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(operation, outcome(err)).Inc()
}

// ResetEmail counts one reset mail delivery attempt.
func (m *Metrics) ResetEmail(err error) {
	if m == nil {
		return
	}
	m.ResetEmails.WithLabelValues(outcome(err)).Inc()
}

// SessionRejected counts one rejected session.
func (m *Metrics) SessionRejected(reason string) {
	if m == nil {
		return
	}
	m.SessionRejections.WithLabelValues(reason).Inc()
}
