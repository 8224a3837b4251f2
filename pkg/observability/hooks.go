// Package observability provides hooks for metrics and tracing.
//
// Library packages emit events through the registered hooks without
// depending on a metrics backend. The defaults are no-ops; the service
// registers a [Prometheus] implementation at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	p := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	observability.SetPipelineHooks(p)
//	observability.SetCacheHooks(p)
//	observability.SetServerHooks(p)
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageStart(ctx, "merge")
//	// ... merge ...
//	observability.Pipeline().OnStageComplete(ctx, "merge", time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Depiction outcomes reported through OnDepiction.
const (
	DepictionRendered = "rendered"
	DepictionCached   = "cached"
	DepictionFailed   = "failed"
	DepictionTimeout  = "timeout"
	DepictionSkipped  = "skipped"
)

// PipelineHooks receives events from the visualization pipeline.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnDepiction is called once per chemical with one of the Depiction*
	// outcomes.
	OnDepiction(ctx context.Context, outcome string, duration time.Duration)

	// OnRunComplete is called at the end of every run, failed or not.
	OnRunComplete(ctx context.Context, warnings int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ServerHooks receives events from the HTTP service.
type ServerHooks interface {
	// OnRequest records a handled request; route is the chi route pattern.
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                          {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopPipelineHooks) OnDepiction(context.Context, string, time.Duration)            {}
func (NoopPipelineHooks) OnRunComplete(context.Context, int, time.Duration, error)      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	serverHooks   ServerHooks   = NoopServerHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers pipeline hooks. Call once at startup.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. Call once at startup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers server hooks. Call once at startup.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
