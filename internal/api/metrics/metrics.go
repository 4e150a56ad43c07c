// Package metrics defines the custom Prometheus metrics of the contest API.
// It is the single source of truth for metric names, labels, and help strings.
// HTTP request metrics come from echoprometheus; everything here is domain
// level and recorded by the handlers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contest"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// LedgerOperationsTotal counts ledger operations by outcome.
// Labels:
//   - type: "deposit", "withdraw", "entry_fee" or "refund"
//   - result: "ok", "duplicate", "rejected", "unavailable" or "error"
var LedgerOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Total number of ledger operations, by type and result.",
	},
	[]string{"type", "result"},
)

// LedgerAmountTotal sums the money moved by successful operations.
// Label:
//   - type: transaction type
var LedgerAmountTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_amount_total",
		Help:      "Sum of amounts moved by successful ledger operations.",
	},
	[]string{"type"},
)

// PayoutDuration measures withdrawal requests end-to-end, including the
// external payout call.
// Label:
//   - result: same values as LedgerOperationsTotal
var PayoutDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payout_duration_seconds",
		Help:      "Duration of withdrawal requests including the payout call.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// ── Contest metrics ───────────────────────────────────────────────────────────

// EntriesTotal counts entry submissions and cancellations.
// Label:
//   - action: "submitted" or "cancelled"
var EntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_total",
		Help:      "Total number of contest entries submitted or cancelled.",
	},
	[]string{"action"},
)

// VotesTotal counts vote attempts.
// Label:
//   - result: "accepted" or "already_voted"
var VotesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Total number of vote attempts, by result.",
	},
	[]string{"result"},
)

// EditionsPublishedTotal counts publish operations.
var EditionsPublishedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "editions_published_total",
		Help:      "Total number of magazine edition publish operations.",
	},
)

// ── Audit queue ───────────────────────────────────────────────────────────────

// RegisterAuditQueue exposes the audit dispatcher's dropped-event count.
// Call it once at startup.
func RegisterAuditQueue(dropped func() int64) {
	promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "Audit events discarded because the dispatcher queue was full.",
		},
		func() float64 { return float64(dropped()) },
	)
}
