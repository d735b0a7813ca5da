// Package metrics exposes the operational counters the pipeline
// maintains: fetch volumes, under-fetch shortfalls and cache behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchedListings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_fetched_listings_total",
		Help: "Listings retrieved from a source, after noise filtering.",
	}, []string{"source"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_fetch_errors_total",
		Help: "Failed fetch attempts per source.",
	}, []string{"source"})

	FetchShortfall = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_fetch_shortfall_total",
		Help: "Records the source reported but pagination never retrieved.",
	}, []string{"source"})

	SkippedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_skipped_records_total",
		Help: "Raw records dropped before normalization, by reason.",
	}, []string{"source", "reason"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_cache_hits_total",
		Help: "Aggregation requests served from a valid cache entry.",
	}, []string{"key"})

	CacheStaleServes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_cache_stale_serves_total",
		Help: "Aggregation requests that fell back to a stale entry.",
	}, []string{"key"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_cache_misses_total",
		Help: "Aggregation requests that found no usable cache entry.",
	}, []string{"key"})
)
