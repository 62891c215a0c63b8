// Package metrics exposes Prometheus collectors for the harvest service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestRecordsTotal    *prometheus.CounterVec
	harvestFailuresTotal   *prometheus.CounterVec
	attachmentsStoredTotal *prometheus.CounterVec
	harvestDurationSeconds *prometheus.HistogramVec
	runDurationSeconds     prometheus.Histogram
	runsTotal              *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvestRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_records_total",
				Help: "Total number of new records persisted, labeled by source.",
			},
			[]string{"source"},
		)

		harvestFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_failures_total",
				Help: "Total number of harvest failures, labeled by source and kind.",
			},
			[]string{"source", "kind"},
		)

		attachmentsStoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_attachments_stored_total",
				Help: "Total number of attachment files written, labeled by source.",
			},
			[]string{"source"},
		)

		harvestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_duration_seconds",
				Help:    "Histogram of per-harvester run durations, labeled by source.",
				Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"source"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvest_run_duration_seconds",
				Help:    "Histogram of full Running pass durations.",
				Buckets: []float64{1, 10, 60, 300, 900, 3600},
			},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_runs_total",
				Help: "Total number of Running passes, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// ObserveHarvester records the outcome of one harvester within a pass.
func ObserveHarvester(source string, saved int, failed bool, duration time.Duration) {
	Init()
	if saved > 0 {
		harvestRecordsTotal.WithLabelValues(source).Add(float64(saved))
	}
	if failed {
		harvestFailuresTotal.WithLabelValues(source, "fetch").Inc()
	}
	harvestDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveRecordFailure counts a single record that could not be persisted.
func ObserveRecordFailure(source string) {
	Init()
	harvestFailuresTotal.WithLabelValues(source, "persist").Inc()
}

// ObserveAttachmentStored counts an attachment file actually written to disk.
func ObserveAttachmentStored(source string) {
	Init()
	attachmentsStoredTotal.WithLabelValues(source).Inc()
}

// ObserveRun records a complete Running pass.
func ObserveRun(outcome string, duration time.Duration) {
	Init()
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
