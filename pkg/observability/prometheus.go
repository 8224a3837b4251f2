package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface on top of prometheus
// collectors.
type Prometheus struct {
	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	depictions      *prometheus.CounterVec
	depictDuration  prometheus.Histogram
	runs            *prometheus.CounterVec
	runWarnings     prometheus.Histogram
	cacheOps        *prometheus.CounterVec
	cacheBytes      prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rpviz",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpviz",
			Name:      "stage_errors_total",
			Help:      "Pipeline stages that returned an error.",
		}, []string{"stage"}),
		depictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpviz",
			Name:      "depictions_total",
			Help:      "Chemical depictions by outcome.",
		}, []string{"outcome"}),
		depictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rpviz",
			Name:      "depiction_duration_seconds",
			Help:      "Time spent depicting one chemical.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpviz",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by result.",
		}, []string{"result"}),
		runWarnings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rpviz",
			Name:      "run_warnings",
			Help:      "Warnings reported per run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpviz",
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes.",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rpviz",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpviz",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rpviz",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		p.stageDuration, p.stageErrors,
		p.depictions, p.depictDuration,
		p.runs, p.runWarnings,
		p.cacheOps, p.cacheBytes,
		p.requests, p.requestDuration,
	)
	return p
}

func (p *Prometheus) OnStageStart(context.Context, string) {}

func (p *Prometheus) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		p.stageErrors.WithLabelValues(stage).Inc()
	}
}

func (p *Prometheus) OnDepiction(_ context.Context, outcome string, d time.Duration) {
	p.depictions.WithLabelValues(outcome).Inc()
	if outcome == DepictionRendered {
		p.depictDuration.Observe(d.Seconds())
	}
}

func (p *Prometheus) OnRunComplete(_ context.Context, warnings int, _ time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.runs.WithLabelValues(result).Inc()
	p.runWarnings.Observe(float64(warnings))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *Prometheus) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ ServerHooks   = (*Prometheus)(nil)
)
