// Package metrics exposes Prometheus collectors for the access service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PIN verification metrics
	PinAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boardgate_pin_attempts_total",
		Help: "Total number of PIN verification attempts",
	}, []string{"outcome"})

	// Biometric ceremony metrics
	CeremoniesStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boardgate_ceremonies_started_total",
		Help: "Total number of WebAuthn ceremonies started",
	}, []string{"kind"})
	CeremoniesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boardgate_ceremonies_finished_total",
		Help: "Total number of WebAuthn ceremonies finished, by outcome",
	}, []string{"kind", "outcome"})
	CeremonyPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boardgate_ceremony_persist_failures_total",
		Help: "Total number of credential updates dropped after a finished ceremony",
	})

	// Gate lifecycle metrics
	GateSessionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boardgate_gate_sessions_opened_total",
		Help: "Total number of access gate sessions opened",
	})
	GateGranted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boardgate_gate_granted_total",
		Help: "Total number of gate sessions granted, by method",
	}, []string{"method"})
	GateDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boardgate_gate_denied_total",
		Help: "Total number of gate denials, by method",
	}, []string{"method"})

	// Audit sink metrics
	AuditWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boardgate_audit_writes_total",
		Help: "Total number of successful audit field updates",
	})
	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boardgate_audit_write_failures_total",
		Help: "Total number of audit updates that failed and were dropped",
	})
)

// Handler returns the HTTP handler serving the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	prometheus.MustRegister(
		PinAttempts,
		CeremoniesStarted,
		CeremoniesFinished,
		CeremonyPersistFailures,
		GateSessionsOpened,
		GateGranted,
		GateDenied,
		AuditWrites,
		AuditWriteFailures,
	)
}
