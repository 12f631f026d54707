// Package metrics is the single source of truth for the server's
// Prometheus metric names, labels, and help strings. Metrics register
// themselves with the default registry via promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// ConnectionsOpen tracks the number of live websocket connections.
var ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "connections_open",
	Help:      "Current number of open websocket connections.",
})

// MessagesSentTotal counts persisted messages, by room kind.
// Label:
//   - kind: "direct" or "group"
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of messages persisted and broadcast.",
	},
	[]string{"kind"},
)

// MessagesDeletedTotal counts single-message deletions and room clears.
// Label:
//   - op: "delete" or "clear"
var MessagesDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_deleted_total",
		Help:      "Total number of message deletion operations.",
	},
	[]string{"op"},
)

// SessionsEvictedTotal counts forced evictions, by reason.
// Label:
//   - reason: "session_replaced" or "account_deleted"
var SessionsEvictedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Total number of connections force-closed by the registry.",
	},
	[]string{"reason"},
)

// SweepRunsTotal counts reconciliation sweep ticks, by outcome.
// Label:
//   - result: "ok" or "error"
var SweepRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Total number of reconciliation sweep runs.",
	},
	[]string{"result"},
)
