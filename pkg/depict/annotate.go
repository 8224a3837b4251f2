package depict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/rpviz/pkg/cache"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/network"
	"github.com/matzehuels/rpviz/pkg/observability"
)

// ErrNoStructure is returned for chemicals without a SMILES string.
var ErrNoStructure = errors.New("no SMILES to depict")

// Depicter produces SVG markup for one structure.
type Depicter interface {
	Depict(ctx context.Context, s network.Structure) (string, error)
}

// MoleculeDepicter depicts structures from their SMILES.
type MoleculeDepicter struct {
	Renderer Renderer // nil selects Graphviz
}

// Depict parses the SMILES of s and renders it.
func (d MoleculeDepicter) Depict(ctx context.Context, s network.Structure) (string, error) {
	smi := network.NormalizeSMILES(s.SMILES)
	if smi == "" {
		return "", ErrNoStructure
	}
	mol, err := ParseSMILES(smi)
	if err != nil {
		return "", err
	}
	r := d.Renderer
	if r == nil {
		r = Graphviz{}
	}
	svg, err := r.RenderSVG(ctx, ToDOT(mol))
	if err != nil {
		return "", err
	}
	return string(svg), nil
}

// Style version of the drawing; part of the cache key.
const styleVersion = 1

// DefaultTimeout bounds a single depiction.
const DefaultTimeout = 10 * time.Second

// Annotator fills in missing depictions across a network.
type Annotator struct {
	Depicter Depicter      // nil selects MoleculeDepicter with Graphviz
	Cache    cache.Cache   // nil disables caching
	Keyer    cache.Keyer   // nil selects the default key layout
	TTL      time.Duration // cache TTL; zero selects cache.DefaultDepictionTTL
	Workers  int           // parallel depictions; zero selects GOMAXPROCS
	Timeout  time.Duration // per chemical; zero selects DefaultTimeout
	Logger   *log.Logger
}

// Stats counts depiction outcomes of one Annotate call.
type Stats struct {
	Rendered int
	Cached   int
	Failed   int
	Skipped  int // chemicals that already had a depiction
}

type outcome struct {
	id     string
	svg    string
	cached bool
	err    error
}

// Annotate depicts every chemical of n that has no depiction yet.
//
// Chemicals are depicted concurrently; results are applied to the network
// after all workers finish. Per-chemical failures are returned as
// ANNOTATION_WARNING errors and never abort the call. The returned error
// is non-nil only when ctx is cancelled.
func (a *Annotator) Annotate(ctx context.Context, n *network.Network) (Stats, []error, error) {
	a.defaults()

	var todo []*network.Chemical
	var st Stats
	for _, c := range n.Chemicals() {
		if c.Depiction != "" {
			st.Skipped++
			observability.Pipeline().OnDepiction(ctx, observability.DepictionSkipped, 0)
			continue
		}
		todo = append(todo, c)
	}

	results := make([]outcome, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)
	for i, c := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.depictOne(gctx, c.ID, c.Structure)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, nil, err
	}
	if err := ctx.Err(); err != nil {
		return st, nil, err
	}

	var warnings []error
	for _, r := range results {
		c, _ := n.Chemical(r.id)
		switch {
		case r.err != nil:
			st.Failed++
			warnings = append(warnings, rperrors.Wrap(rperrors.ErrCodeAnnotation, r.err, "depict %s", r.id))
			a.Logger.Debug("depiction failed", "chemical", r.id, "err", r.err)
		case r.cached:
			st.Cached++
			c.Depiction = r.svg
		default:
			st.Rendered++
			c.Depiction = r.svg
		}
	}
	return st, warnings, nil
}

func (a *Annotator) defaults() {
	if a.Depicter == nil {
		a.Depicter = MoleculeDepicter{}
	}
	if a.Keyer == nil {
		a.Keyer = cache.NewDefaultKeyer()
	}
	if a.TTL <= 0 {
		a.TTL = cache.DefaultDepictionTTL
	}
	if a.Workers <= 0 {
		a.Workers = runtime.GOMAXPROCS(0)
	}
	if a.Timeout <= 0 {
		a.Timeout = DefaultTimeout
	}
	if a.Logger == nil {
		a.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func (a *Annotator) depictOne(ctx context.Context, id string, s network.Structure) outcome {
	hooks := observability.Pipeline()
	smi := network.NormalizeSMILES(s.SMILES)
	if smi == "" {
		hooks.OnDepiction(ctx, observability.DepictionFailed, 0)
		return outcome{id: id, err: ErrNoStructure}
	}

	key := a.Keyer.DepictionKey(smi, cache.DepictionKeyOpts{Engine: "neato", Version: styleVersion})
	if a.Cache != nil {
		if data, ok, err := a.Cache.Get(ctx, key); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, "depiction")
			hooks.OnDepiction(ctx, observability.DepictionCached, 0)
			return outcome{id: id, svg: string(data), cached: true}
		} else if err != nil {
			a.Logger.Debug("depiction cache read failed", "chemical", id, "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "depiction")
	}

	start := time.Now()
	svg, err := a.depictWithTimeout(ctx, s)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			hooks.OnDepiction(ctx, observability.DepictionTimeout, time.Since(start))
			return outcome{id: id, err: rperrors.Wrap(rperrors.ErrCodeTimeout, err, "depiction exceeded %s", a.Timeout)}
		}
		hooks.OnDepiction(ctx, observability.DepictionFailed, time.Since(start))
		return outcome{id: id, err: err}
	}
	hooks.OnDepiction(ctx, observability.DepictionRendered, time.Since(start))

	if a.Cache != nil {
		if err := a.Cache.Set(ctx, key, []byte(svg), a.TTL); err != nil {
			a.Logger.Debug("depiction cache write failed", "chemical", id, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "depiction", len(svg))
		}
	}
	return outcome{id: id, svg: svg}
}

// depictWithTimeout bounds one depiction. The depicter runs in its own
// goroutine so a renderer that ignores its context cannot stall a worker.
func (a *Annotator) depictWithTimeout(ctx context.Context, s network.Structure) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	type result struct {
		svg string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("depiction panicked: %v", r)}
			}
		}()
		svg, err := a.Depicter.Depict(ctx, s)
		ch <- result{svg: svg, err: err}
	}()

	select {
	case r := <-ch:
		return r.svg, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
