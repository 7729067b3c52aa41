package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface by updating Prometheus
// collectors. Register it with SetResolveHooks, SetCacheHooks and
// SetHTTPHooks.
type Prometheus struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	resolvedCount   prometheus.Histogram
	conflictTotal   *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	httpTotal       *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpErrors      *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
// It panics if registration fails, like prometheus.MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		resolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libresolve_resolve_total",
				Help: "Number of resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "libresolve_resolve_duration_seconds",
				Help:    "Time taken to resolve a root artifact.",
				Buckets: prometheus.DefBuckets,
			},
		),
		resolvedCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "libresolve_resolved_artifacts",
				Help:    "Number of artifacts in a successful resolution.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		conflictTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libresolve_conflicts_total",
				Help: "Number of version conflicts resolved.",
			},
			[]string{"downgrade"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libresolve_cache_requests_total",
				Help: "Cache lookups by kind and result.",
			},
			[]string{"kind", "result"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libresolve_cache_written_bytes_total",
				Help: "Bytes written to the cache by kind.",
			},
			[]string{"kind"},
		),
		httpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libresolve_http_requests_total",
				Help: "Repository HTTP responses by host and status code.",
			},
			[]string{"host", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "libresolve_http_request_duration_seconds",
				Help:    "Repository HTTP request latency by host.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
		httpErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libresolve_http_errors_total",
				Help: "Repository HTTP transport errors by host.",
			},
			[]string{"host"},
		),
	}
	reg.MustRegister(
		p.resolveTotal,
		p.resolveDuration,
		p.resolvedCount,
		p.conflictTotal,
		p.cacheTotal,
		p.cacheBytes,
		p.httpTotal,
		p.httpDuration,
		p.httpErrors,
	)
	return p
}

func (p *Prometheus) OnResolveStart(context.Context, string) {}

func (p *Prometheus) OnResolveComplete(_ context.Context, _ string, artifacts int, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	p.resolveTotal.WithLabelValues(outcome).Inc()
	p.resolveDuration.Observe(d.Seconds())
	if err == nil {
		p.resolvedCount.Observe(float64(artifacts))
	}
}

func (p *Prometheus) OnConflict(_ context.Context, _, _ string, _ int, downgrade bool) {
	p.conflictTotal.WithLabelValues(strconv.FormatBool(downgrade)).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, kind string) {
	p.cacheTotal.WithLabelValues(kind, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, kind string) {
	p.cacheTotal.WithLabelValues(kind, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, kind string, size int64) {
	p.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, code int, d time.Duration) {
	p.httpTotal.WithLabelValues(host, strconv.Itoa(code)).Inc()
	p.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.httpErrors.WithLabelValues(host).Inc()
}

var (
	_ ResolveHooks = (*Prometheus)(nil)
	_ CacheHooks   = (*Prometheus)(nil)
	_ HTTPHooks    = (*Prometheus)(nil)
)
