package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandpeaks_records_scored_total",
			Help: "Total demand score records produced",
		},
		[]string{"location"},
	)

	DatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandpeaks_dates_skipped_total",
			Help: "Dates skipped during a scoring run",
		},
		[]string{"location", "reason"},
	)

	NeutralFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandpeaks_neutral_fallbacks_total",
			Help: "Score inputs that fell back to the neutral midpoint",
		},
		[]string{"flag"},
	)

	LocationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandpeaks_locations_failed_total",
			Help: "Locations aborted during a scoring run",
		},
		[]string{"location"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "demandpeaks_batch_duration_seconds",
			Help:    "Scoring run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RowsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandpeaks_rows_imported_total",
			Help: "Sales rows stored by the importer",
		},
		[]string{"location", "layout"},
	)

	RowsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandpeaks_rows_rejected_total",
			Help: "Sales rows rejected by validation",
		},
		[]string{"layout", "flag"},
	)
)

// WriteTextfile writes the default registry to path in the node exporter
// textfile collector format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
