// Package metrics exposes Prometheus counters for provider calls, caches and batches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ProviderRequests *prometheus.CounterVec   // provider, op, outcome
	ProviderDuration *prometheus.HistogramVec // provider, op
	CacheLookups     *prometheus.CounterVec   // cache, result
	BatchItems       *prometheus.CounterVec   // outcome
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_provider_requests_total",
			Help: "Provider HTTP calls by provider, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "travel_provider_request_duration_seconds",
			Help:    "Latency of provider HTTP calls.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"provider", "op"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_cache_lookups_total",
			Help: "TTL cache lookups by cache and result (hit|miss).",
		}, []string{"cache", "result"}),
		BatchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_batch_items_total",
			Help: "Batch destinations by outcome (cached|fetched|failed|dropped).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.ProviderRequests, c.ProviderDuration, c.CacheLookups, c.BatchItems)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// ObserveProvider records one provider call. Safe on a nil Collector.
func (c *Collector) ObserveProvider(provider, op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ProviderRequests.WithLabelValues(provider, op, outcome).Inc()
	c.ProviderDuration.WithLabelValues(provider, op).Observe(d.Seconds())
}

// CacheLookup records a hit or miss on the named cache. Safe on a nil Collector.
func (c *Collector) CacheLookup(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(cache, result).Inc()
}

// BatchItem records the outcome of one batch destination. Safe on a nil Collector.
func (c *Collector) BatchItem(outcome string) {
	if c == nil {
		return
	}
	c.BatchItems.WithLabelValues(outcome).Inc()
}
