// Package metrics defines the Prometheus instrumentation for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubActiveChannels tracks channels with at least one live viewer
	HubActiveChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_channels",
			Help: "Number of channels with at least one connected viewer",
		},
	)

	// HubConnectedViewers tracks total live viewer connections
	HubConnectedViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_viewers",
			Help: "Total number of connected viewers across all channels",
		},
	)

	// HubBroadcastsTotal counts broadcast calls by outcome
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Broadcast calls by outcome (full/partial/empty)",
		},
		[]string{"outcome"},
	)

	// HubMessagesDeliveredTotal counts per-viewer successful deliveries
	HubMessagesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_messages_delivered_total",
			Help: "Messages successfully written to viewer connections",
		},
	)

	// HubDeadViewersPrunedTotal counts viewers removed after a failed write
	HubDeadViewersPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_dead_viewers_pruned_total",
			Help: "Viewers pruned after a failed send or ping",
		},
	)

	// HubViewersRejectedTotal counts registrations refused by the per-channel cap
	HubViewersRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_viewers_rejected_total",
			Help: "Viewer registrations rejected because the channel was full",
		},
	)
)

// Sweeper metrics
var (
	SweeperRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_runs_total",
			Help: "Expiry sweeper executions",
		},
	)

	SweeperPagesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_pages_deleted_total",
			Help: "Pages deleted by the expiry sweeper",
		},
	)
)

// Rotation cache metrics
var (
	RotationCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_cache_hits_total",
			Help: "Resolved rotation cache hits",
		},
	)

	RotationCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_cache_misses_total",
			Help: "Resolved rotation cache misses",
		},
	)
)
