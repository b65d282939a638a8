// Package metrics provides Prometheus metrics for the price tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeprice_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokeprice_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Provider Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeprice_provider_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"provider", "status"}, // status: HTTP code, "error" for transport failures
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokeprice_provider_request_duration_seconds",
			Help:    "Upstream API request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	PriceTrackerQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokeprice_pricetracker_quota_remaining",
			Help: "Remaining PokemonPriceTracker API requests for today",
		},
	)

	PriceTrackerQuotaLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokeprice_pricetracker_quota_limit",
			Help: "Daily PokemonPriceTracker API request limit",
		},
	)

	// Price Collection Metrics
	PriceUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeprice_price_updates_total",
			Help: "Total number of price history rows written",
		},
		[]string{"source"},
	)

	PriceUpdatesToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokeprice_price_updates_today",
			Help: "Number of products priced by the collector today (resets at midnight)",
		},
	)

	PriceQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokeprice_price_queue_size",
			Help: "Number of products waiting in the priority refresh queue",
		},
	)

	PriceBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pokeprice_price_batch_duration_seconds",
			Help:    "Time taken to process a price collection batch",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Ingestion Metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeprice_job_runs_total",
			Help: "Ingestion job runs by job and result",
		},
		[]string{"job", "result"}, // result: "success" or "failed"
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokeprice_job_duration_seconds",
			Help:    "Ingestion job duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"job"},
	)

	MatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeprice_match_outcomes_total",
			Help: "Record linkage outcomes by job and strategy",
		},
		[]string{"job", "strategy"}, // strategy: matcher strategy or "unmatched"
	)

	// Catalog Metrics
	CatalogGroupsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokeprice_catalog_groups_total",
			Help: "Number of sets in the catalog",
		},
	)

	CatalogProductsByLanguage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pokeprice_catalog_products",
			Help: "Number of products in the catalog by language",
		},
		[]string{"language"},
	)

	CatalogMarketValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokeprice_catalog_market_value_usd",
			Help: "Sum of current market prices across the catalog in USD",
		},
	)
)
