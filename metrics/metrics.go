package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reject reasons used as the "reason" label of BlocksRejected
const (
	ReasonMalformed        = "malformed"
	ReasonIdentityMismatch = "identity_mismatch"
)

var (
	BlocksRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagnode_blocks_registered_total",
		Help: "Blocks accepted and stored, whether resolved or pending",
	})

	BlocksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagnode_blocks_rejected_total",
		Help: "Blocks refused at registration",
	}, []string{"reason"})

	BlocksResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagnode_blocks_resolved_total",
		Help: "Blocks whose metadata has been computed",
	})

	BlocksPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dagnode_blocks_pending",
		Help: "Stored blocks still waiting for a parent",
	})

	// branch names come from peers, so head changes are not labelled by branch
	HeadChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagnode_head_changes_total",
		Help: "Head log appends across all branches",
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagnode_events_emitted_total",
		Help: "Events delivered to listeners, by kind",
	}, []string{"kind"})
)
