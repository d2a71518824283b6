package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RegistrationsTotal prometheus.Counter
	LoginsTotal        prometheus.Counter
	LoginFailures      prometheus.Counter
	PersonasCreated    prometheus.Counter
	PersonasRotated    prometheus.Counter
	PostsCreated       prometheus.Counter
	PostsRejected      prometheus.Counter
	AuditEntries       prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_registrations_total",
			Help: "Total number of accountability profiles registered",
		}),
		LoginsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_logins_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		PersonasCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_personas_created_total",
			Help: "Total number of personas created",
		}),
		PersonasRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_personas_rotated_total",
			Help: "Total number of persona rotations",
		}),
		PostsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_posts_created_total",
			Help: "Total number of posts published",
		}),
		PostsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_posts_rejected_total",
			Help: "Total number of posts rejected by the quota guard",
		}),
		AuditEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_audit_entries_total",
			Help: "Total number of moderation audit entries written",
		}),
	}
}
