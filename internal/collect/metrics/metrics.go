package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APICallsTotal tracks API calls per endpoint and classified outcome
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtds_api_calls_total",
			Help: "Total number of API calls",
		},
		[]string{"endpoint", "method", "outcome"},
	)

	// APILatency tracks API call latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debtds_api_latency_seconds",
			Help:    "API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// APIBalance tracks the last account balance reported by the API
	APIBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "debtds_api_balance",
			Help: "Last account balance reported by the API",
		},
	)

	// CacheLookups tracks cache hits and misses per namespace
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtds_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"cache", "result"},
	)

	// CacheEntries tracks the size of each cache
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "debtds_cache_entries",
			Help: "Number of entries held by a cache",
		},
		[]string{"cache"},
	)

	// KeysProcessed tracks resolved keys per job and outcome
	KeysProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtds_keys_processed_total",
			Help: "Total number of keys processed",
		},
		[]string{"job", "status"},
	)

	// PagesFetched tracks search pages fetched
	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "debtds_pages_fetched_total",
			Help: "Total number of search pages fetched",
		},
	)

	// DBConnectionPoolUsage tracks the percentage of used connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "debtds_db_connection_pool_usage",
			Help: "Percentage of database connections in use",
		},
	)
)
