package depict

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/rpviz/pkg/cache"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/network"
)

// fakeRenderer echoes the DOT source wrapped in an svg element.
type fakeRenderer struct {
	calls atomic.Int32
	delay time.Duration
}

func (f *fakeRenderer) RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return []byte("<svg>" + strconv.Itoa(strings.Count(dot, "--")) + "</svg>"), nil
}

func testNetwork(t *testing.T, smiles map[string]string) *network.Network {
	t.Helper()
	n := network.New()
	for id, smi := range smiles {
		c, err := network.NewChemical(id, "", network.Structure{SMILES: smi})
		if err != nil {
			t.Fatal(err)
		}
		if err := n.AddChemical(c); err != nil {
			t.Fatal(err)
		}
	}
	return n
}

func TestAnnotatorIsolatesFailures(t *testing.T) {
	n := testNetwork(t, map[string]string{
		"ethanol": "CCO",
		"broken":  "C1CC",
		"empty":   "",
		"acetate": "CC(=O)[O-]",
	})
	r := &fakeRenderer{}
	a := &Annotator{Depicter: MoleculeDepicter{Renderer: r}, Workers: 2}

	st, warnings, err := a.Annotate(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if st.Rendered != 2 || st.Failed != 2 {
		t.Errorf("Stats = %+v", st)
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2", len(warnings))
	}
	for _, w := range warnings {
		if !rperrors.Is(w, rperrors.ErrCodeAnnotation) || rperrors.IsFatal(w) {
			t.Errorf("warning %v should be a non-fatal ANNOTATION_WARNING", w)
		}
	}

	for id, want := range map[string]bool{"ethanol": true, "acetate": true, "broken": false, "empty": false} {
		c, _ := n.Chemical(id)
		if got := c.Depiction != ""; got != want {
			t.Errorf("%s has depiction = %v, want %v", id, got, want)
		}
	}
}

func TestAnnotatorSkipsExistingDepictions(t *testing.T) {
	n := testNetwork(t, map[string]string{"water": "O"})
	c, _ := n.Chemical("water")
	c.Depiction = "<svg>given</svg>"

	r := &fakeRenderer{}
	st, _, err := (&Annotator{Depicter: MoleculeDepicter{Renderer: r}}).Annotate(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if st.Skipped != 1 || r.calls.Load() != 0 {
		t.Errorf("Stats = %+v, renders = %d", st, r.calls.Load())
	}
	if c.Depiction != "<svg>given</svg>" {
		t.Errorf("existing depiction replaced: %q", c.Depiction)
	}
}

func TestAnnotatorUsesCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := &fakeRenderer{}
	a := &Annotator{Depicter: MoleculeDepicter{Renderer: r}, Cache: fc}

	first := testNetwork(t, map[string]string{"ethanol": "CCO"})
	if st, _, _ := a.Annotate(context.Background(), first); st.Rendered != 1 {
		t.Fatalf("first run Stats = %+v", st)
	}
	second := testNetwork(t, map[string]string{"ethanol-again": "CCO"})
	st, _, _ := a.Annotate(context.Background(), second)
	if st.Cached != 1 || r.calls.Load() != 1 {
		t.Errorf("second run Stats = %+v, renders = %d", st, r.calls.Load())
	}
	c, _ := second.Chemical("ethanol-again")
	if c.Depiction == "" {
		t.Error("cached depiction not applied")
	}
}

func TestAnnotatorTimeout(t *testing.T) {
	n := testNetwork(t, map[string]string{"slow": "CCCC"})
	r := &fakeRenderer{delay: 200 * time.Millisecond}
	a := &Annotator{Depicter: MoleculeDepicter{Renderer: r}, Timeout: 10 * time.Millisecond}

	st, warnings, err := a.Annotate(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if st.Failed != 1 || len(warnings) != 1 {
		t.Fatalf("Stats = %+v, warnings = %v", st, warnings)
	}
	if !errors.Is(warnings[0], context.DeadlineExceeded) {
		t.Errorf("warning %v should wrap the deadline", warnings[0])
	}
}

func TestAnnotatorCancelled(t *testing.T) {
	n := testNetwork(t, map[string]string{"a": "C", "b": "CC"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := (&Annotator{Depicter: MoleculeDepicter{Renderer: &fakeRenderer{}}}).Annotate(ctx, n)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNormalizeSVG(t *testing.T) {
	in := `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
<!-- Generated by graphviz -->
<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg">
<g id="graph0"></g>
</svg>`
	out := string(normalizeSVG([]byte(in)))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 44.00" width="62" height="44">`) {
		t.Errorf("unexpected root:\n%s", out)
	}
	if strings.Contains(out, "<?xml") || strings.Contains(out, "<!--") || strings.Contains(out, "DOCTYPE") {
		t.Errorf("prolog not stripped:\n%s", out)
	}
}
