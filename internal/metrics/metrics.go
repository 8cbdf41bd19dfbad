// Package metrics exposes Prometheus counters for the citation graph service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for one process.
// All Observe methods are safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	UpstreamRequests *prometheus.CounterVec
	EdgesCompleted   prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

// NewCollector creates a collector registered on its own registry,
// so that several collectors can coexist in tests.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_hits_total",
			Help:      "Metadata lookups served from the in-process cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_misses_total",
			Help:      "Metadata lookups that required an upstream fetch",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP attempts by response status (\"error\" for transport failures)",
		}, []string{"status"}),
		EdgesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autocomplete_edges_added_total",
			Help:      "Citation edges added by auto-completion",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.UpstreamRequests,
		c.EdgesCompleted,
		c.HTTPRequests,
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCacheHit counts a metadata cache hit.
func (c *Collector) ObserveCacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// ObserveCacheMiss counts a metadata cache miss.
func (c *Collector) ObserveCacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

// ObserveUpstream counts one upstream attempt. A zero status means the
// request failed before a response was received.
func (c *Collector) ObserveUpstream(status int) {
	if c == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.UpstreamRequests.WithLabelValues(label).Inc()
}

// ObserveEdgesCompleted adds n auto-completed edges.
func (c *Collector) ObserveEdgesCompleted(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.EdgesCompleted.Add(float64(n))
}

// ObserveHTTP counts one served HTTP request.
func (c *Collector) ObserveHTTP(method, route string, status int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
