// Package metrics defines and registers the custom Prometheus metrics of the
// marketplace auth service. It is the single source of truth for metric
// names, labels, and help strings.
//
// All metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── Authentication ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Labels:
//   - flow: "login" or "admin_login"
//   - result: "success", "invalid_credentials", "validation", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Total number of login attempts, by flow and result.",
	},
	[]string{"flow", "result"},
)

// RegistrationsTotal counts registration attempts.
// Labels:
//   - role: requested role ("student", "owner", or "unknown")
//   - result: "success", "validation", "conflict", "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by role and result.",
	},
	[]string{"role", "result"},
)

// TokenRejectionsTotal counts bearer tokens refused by the auth guard. The
// reason is only ever exposed here and in logs, never to the client.
// Label:
//   - reason: "missing", "malformed", "signature", "expired"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "token_rejections_total",
		Help:      "Total number of rejected bearer tokens, by internal reason.",
	},
	[]string{"reason"},
)

// ForbiddenTotal counts authenticated requests refused by role checks.
// Label:
//   - role: the caller's role
var ForbiddenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "forbidden_total",
		Help:      "Total number of requests rejected by role-based authorization.",
	},
	[]string{"role"},
)

// ── Password hashing ─────────────────────────────────────────────────────────

// PasswordHashDuration measures bcrypt work.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hash and verify operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// HashQueueDepth tracks jobs waiting for a hashing worker.
// Label:
//   - pool: worker pool name
var HashQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "hash_queue_depth",
		Help:      "Current number of jobs pending in each hashing worker pool.",
	},
	[]string{"pool"},
)
