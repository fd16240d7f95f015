package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TransitionsTotal counts lifecycle transitions by entity type and outcome
// (accepted / rejected / unauthorized).
var TransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clearcore_transitions_total",
		Help: "Total number of lifecycle transition attempts",
	},
	[]string{"entity_type", "outcome"},
)

// JournalsPosted counts clearing journals accepted by the ledger.
var JournalsPosted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "clearcore_ledger_journals_posted_total",
		Help: "Total number of clearing journals posted",
	},
)

// IdempotentReplays counts journal posts that matched an existing
// idempotency key. divergent=true means the retry carried a payload that
// differs from the stored journal.
var IdempotentReplays = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clearcore_ledger_idempotent_replays_total",
		Help: "Total number of journal posts resolved by idempotency key",
	},
	[]string{"divergent"},
)

// AuthzDenials counts capability denials by reason.
var AuthzDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clearcore_authz_denials_total",
		Help: "Total number of capability authorization denials",
	},
	[]string{"reason"},
)

// Event bus transport metrics.
var (
	BusConnectionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clearcore_bus_connection_errors_total",
			Help: "Number of event bus listener connection errors",
		},
	)

	BusReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clearcore_bus_reconnects_total",
			Help: "Number of event bus listener reconnect attempts",
		},
	)

	BusMalformedEnvelopes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clearcore_bus_malformed_envelopes_total",
			Help: "Number of undecodable envelopes dropped by the bus listener",
		},
	)

	BusEnvelopesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearcore_bus_envelopes_published_total",
			Help: "Number of envelopes published to the shared channel",
		},
		[]string{"origin"},
	)
)

// RiskConfigFallbacks counts fetches that fell back to the built-in default.
var RiskConfigFallbacks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "clearcore_riskconfig_fallbacks_total",
		Help: "Number of risk configuration fetches served by the built-in default",
	},
)

func init() {
	prometheus.MustRegister(TransitionsTotal, JournalsPosted, IdempotentReplays)
	prometheus.MustRegister(AuthzDenials)
	prometheus.MustRegister(BusConnectionErrors, BusReconnects, BusMalformedEnvelopes, BusEnvelopesPublished)
	prometheus.MustRegister(RiskConfigFallbacks)
}
