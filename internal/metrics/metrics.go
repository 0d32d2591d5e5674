// Package metrics exposes Prometheus instrumentation for the points ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TransactionsTotal counts committed ledger entries by kind.
var TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "loyalty_transactions_total",
	Help: "Committed ledger entries by transaction kind.",
}, []string{"kind"})

// DuplicateSubmissions counts idempotent replays of already-applied entries.
var DuplicateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "loyalty_duplicate_submissions_total",
	Help: "Mutations answered from a previously applied idempotency key.",
})

// VersionConflicts counts optimistic-concurrency retries on the balance row.
var VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "loyalty_version_conflicts_total",
	Help: "Balance writes rejected by the optimistic version check.",
})

// TierChanges counts tier transitions emitted after committed mutations.
var TierChanges = promauto.NewCounter(prometheus.CounterOpts{
	Name: "loyalty_tier_changes_total",
	Help: "Tier transitions detected after balance updates.",
})

// SweepRuns counts expiration sweep passes.
var SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
	Name: "loyalty_sweep_runs_total",
	Help: "Expiration sweep passes completed.",
})

// SweptPoints counts points expired by the sweeper.
var SweptPoints = promauto.NewCounter(prometheus.CounterOpts{
	Name: "loyalty_swept_points_total",
	Help: "Points expired by the sweeper.",
})

// MutationDuration observes end-to-end mutation latency, lock wait included.
var MutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "loyalty_mutation_duration_seconds",
	Help:    "End-to-end duration of ledger mutations.",
	Buckets: prometheus.DefBuckets,
}, []string{"kind"})
