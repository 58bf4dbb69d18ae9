// Package metrics defines and registers the custom Prometheus metrics of the
// SEO CRM API. It is the single source of truth for metric names, labels and
// help strings. HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seocrm"

// ── Authorization ────────────────────────────────────────────────────────────

// AuthzDecisionsTotal counts enforcer decisions.
// Labels:
//   - resource: "client", "keyword" or "backlink"
//   - action: "read", "create", "update" or "delete"
//   - decision: "allowed", "denied" or "unauthenticated"
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Total number of tenant scope decisions taken by the enforcer.",
	},
	[]string{"resource", "action", "decision"},
)

// RouteDecisionsTotal counts route gate outcomes.
// Labels:
//   - class: route class, e.g. "admin_only"
//   - outcome: "allowed", "redirected" or "rejected"
var RouteDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_gate_total",
		Help:      "Total number of route gate decisions.",
	},
	[]string{"class", "outcome"},
)

// ── Sessions ─────────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts account creations.
// Labels:
//   - kind: "user", "admin" or "client_user"
//   - result: "success", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts by kind and result.",
	},
	[]string{"kind", "result"},
)

// PartialFailuresTotal counts multi-step operations that failed midway.
// Labels:
//   - operation: e.g. "register_client_user"
//   - compensated: "true" or "false"
var PartialFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_failures_total",
		Help:      "Total number of operations that left or rolled back a partial write.",
	},
	[]string{"operation", "compensated"},
)

// ── Data ─────────────────────────────────────────────────────────────────────

// ImportRowsTotal counts bulk import rows.
// Labels:
//   - resource: "keyword" or "backlink"
//   - result: "imported" or "failed"
var ImportRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Total number of bulk import rows by resource and result.",
	},
	[]string{"resource", "result"},
)

// StoreReadRetriesTotal counts idempotent reads retried after a store error.
var StoreReadRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_read_retries_total",
		Help:      "Total number of idempotent reads retried after a transient store failure.",
	},
)

// DashboardBuildDuration measures how long a dashboard takes to assemble.
// Label:
//   - kind: "admin" or "client"
var DashboardBuildDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dashboard_build_duration_seconds",
		Help:      "Duration of dashboard assembly including all store reads.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)
