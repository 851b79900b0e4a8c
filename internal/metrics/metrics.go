// Package metrics exposes Prometheus collectors and the per-session
// counter tracker for the harvester.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsSeenTotal      prometheus.Counter
	itemsAttemptedTotal prometheus.Counter
	itemsExtractedTotal prometheus.Counter
	itemsSkippedTotal   *prometheus.CounterVec
	itemsFailedTotal    *prometheus.CounterVec
	retriesTotal        *prometheus.CounterVec
	contactsTotal       prometheus.Counter
	jobsTotal           prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		itemsSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_items_seen_total",
			Help: "Total number of raw items surfaced by the source.",
		})
		itemsAttemptedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_items_attempted_total",
			Help: "Total number of items that entered classification.",
		})
		itemsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_items_extracted_total",
			Help: "Total number of items that produced contacts or a job.",
		})
		itemsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_items_skipped_total",
				Help: "Total number of skipped items, labeled by reason.",
			},
			[]string{"reason"},
		)
		itemsFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_items_failed_total",
				Help: "Total number of failed items, labeled by reason.",
			},
			[]string{"reason"},
		)
		retriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_retries_total",
				Help: "Total retry attempts, labeled by operation name.",
			},
			[]string{"operation"},
		)
		contactsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_contacts_extracted_total",
			Help: "Total number of contact records extracted.",
		})
		jobsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_jobs_classified_total",
			Help: "Total number of posts classified as job postings.",
		})
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
