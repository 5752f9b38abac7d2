package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncChunksTotal counts block-range chunks fetched per event kind and outcome
	SyncChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_sync_chunks_total",
			Help: "Total number of block-range chunks fetched",
		},
		[]string{"kind", "status"},
	)

	// EventsAppended counts records appended to the event cache
	EventsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_events_appended_total",
			Help: "Total number of event records appended to the cache",
		},
		[]string{"kind", "currency", "amount"},
	)

	// BlocksScanned counts blocks covered by successful chunks
	BlocksScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_blocks_scanned_total",
			Help: "Total number of blocks scanned for events",
		},
		[]string{"kind"},
	)

	// SyncErrors counts failed syncs by error category
	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_sync_errors_total",
			Help: "Total number of failed syncs",
		},
		[]string{"kind", "category"},
	)

	// SyncDuration tracks the duration of one Sync call
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tornado_sync_duration_seconds",
			Help:    "Event sync duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"kind"},
	)

	// CacheCursor is the last block covered by the cache for each key
	CacheCursor = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tornado_cache_cursor_block",
			Help: "Last block number covered by the event cache",
		},
		[]string{"kind", "currency", "amount"},
	)

	// Reconstructions counts Merkle path reconstructions by outcome
	Reconstructions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_reconstructions_total",
			Help: "Total number of Merkle path reconstructions",
		},
		[]string{"status"},
	)

	// ProofDuration tracks proving time
	ProofDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tornado_proof_duration_seconds",
			Help:    "Withdrawal proof generation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ProofsGenerated counts proving attempts by outcome
	ProofsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_proofs_total",
			Help: "Total number of withdrawal proofs generated",
		},
		[]string{"status"},
	)

	// WatcherRounds counts background sync rounds of the watcher daemon
	WatcherRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_watcher_rounds_total",
			Help: "Total number of background sync rounds",
		},
		[]string{"status"},
	)
)
