package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnStageStart(ctx, "load")
	p.OnStageComplete(ctx, "load", time.Second, nil)
	p.OnDepiction(ctx, DepictionRendered, time.Millisecond)
	p.OnRunComplete(ctx, 2, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "depiction")
	c.OnCacheMiss(ctx, "depiction")
	c.OnCacheSet(ctx, "depiction", 1024)

	NoopServerHooks{}.OnRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}

	p := NewPrometheus(prometheus.NewRegistry())
	SetPipelineHooks(p)
	SetCacheHooks(p)
	SetServerHooks(p)
	if Pipeline() != PipelineHooks(p) || Cache() != CacheHooks(p) || Server() != ServerHooks(p) {
		t.Error("Set*Hooks should install the given hooks")
	}

	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(p) {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore noop hooks")
	}
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnStageComplete(ctx, "merge", 10*time.Millisecond, nil)
	p.OnStageComplete(ctx, "bundle", 10*time.Millisecond, errors.New("boom"))
	p.OnDepiction(ctx, DepictionRendered, 5*time.Millisecond)
	p.OnDepiction(ctx, DepictionFailed, 0)
	p.OnDepiction(ctx, DepictionFailed, 0)
	p.OnRunComplete(ctx, 3, time.Second, nil)
	p.OnCacheHit(ctx, "depiction")
	p.OnCacheSet(ctx, "depiction", 512)
	p.OnRequest(ctx, "POST", "/api/v1/visualize", 200, time.Second)

	if got := counterValue(t, reg, "rpviz_depictions_total", DepictionFailed); got != 2 {
		t.Errorf("failed depictions = %v, want 2", got)
	}
	if got := counterValue(t, reg, "rpviz_stage_errors_total", "bundle"); got != 1 {
		t.Errorf("bundle stage errors = %v, want 1", got)
	}
	if got := counterValue(t, reg, "rpviz_cache_written_bytes_total", ""); got != 512 {
		t.Errorf("cache bytes = %v, want 512", got)
	}
	if got := counterValue(t, reg, "rpviz_runs_total", "ok"); got != 1 {
		t.Errorf("ok runs = %v, want 1", got)
	}
}

// counterValue returns the counter of family name whose first label has
// the given value, or the unlabelled counter when label is empty.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := m.GetLabel()
			if label == "" && len(labels) == 0 {
				return m.GetCounter().GetValue()
			}
			for _, l := range labels {
				if l.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}
