package recommender

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus 指标：缓存命中率、兜底占比、端到端延迟。
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cookrec_cache_hits_total",
		Help: "Total number of recommendation cache hits",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cookrec_cache_misses_total",
		Help: "Total number of recommendation cache misses",
	})

	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cookrec_fallback_total",
		Help: "Total number of requests served fully or partially by the popularity fallback",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookrec_requests_total",
		Help: "Total number of recommendation requests by outcome",
	}, []string{"outcome"})

	recommendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cookrec_recommend_duration_seconds",
		Help:    "End to end recommendation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
