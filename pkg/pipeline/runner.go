package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/rpviz/pkg/bundle"
	"github.com/matzehuels/rpviz/pkg/cache"
	"github.com/matzehuels/rpviz/pkg/cofactor"
	"github.com/matzehuels/rpviz/pkg/depict"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/input"
	"github.com/matzehuels/rpviz/pkg/network"
	"github.com/matzehuels/rpviz/pkg/observability"
	"github.com/matzehuels/rpviz/pkg/sbml"
	"github.com/matzehuels/rpviz/pkg/viewer"
)

// Runner encapsulates pipeline execution with a depiction cache.
//
// The Runner is stateless except for its collaborators; it does not keep
// results. Multiple goroutines can use the same Runner with different
// options, as every run gets its own workspace.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Depicter renders chemical structures. Nil selects the graphviz
	// molecule depicter.
	Depicter depict.Depicter

	// CacheTTL is how long depictions stay cached; zero selects
	// cache.DefaultDepictionTTL.
	CacheTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete pipeline.
//
// On a fatal error the returned Result is nil. Warnings logged during a
// failed run are not returned.
func (r *Runner) Execute(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	start := time.Now()
	result := &Result{
		RunID:   uuid.NewString(),
		Context: opts.ContextualInfo(),
	}
	defer func() {
		observability.Pipeline().OnRunComplete(ctx, len(result.Warnings), time.Since(start), err)
	}()
	logger = logger.With("run", result.RunID[:8])

	// Stage 1: Input
	var ws *input.Workspace
	err = r.stage(ctx, StageInput, &result.Stats.InputTime, func() error {
		var err error
		ws, err = input.Open(ctx, opts.Input, opts.format, input.Options{
			TempDir:         opts.TempDir,
			MaxExtractBytes: opts.MaxExtractBytes,
			Logger:          logger,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Warn("remove workspace", "err", cerr)
		}
	}()
	result.Stats.Models = len(ws.Models)

	// Stage 2: Load
	err = r.stage(ctx, StageLoad, &result.Stats.LoadTime, func() error {
		n, warnings, err := r.Load(ctx, ws, logger)
		result.Network = n
		result.Warnings = append(result.Warnings, warnings...)
		result.Stats.ModelsSkipped = len(warnings)
		return err
	})
	if err != nil {
		return nil, err
	}
	n := result.Network
	result.Stats.Chemicals = n.ChemicalCount()
	result.Stats.Reactions = n.ReactionCount()
	result.Stats.Pathways = n.PathwayCount()
	logger.Info("loaded models",
		"models", result.Stats.Models,
		"skipped", result.Stats.ModelsSkipped,
		"chemicals", result.Stats.Chemicals,
		"reactions", result.Stats.Reactions,
		"pathways", result.Stats.Pathways,
		"duration", result.Stats.LoadTime)

	// Stage 3: Cofactors
	var cofactorTime time.Duration
	_ = r.stage(ctx, StageCofactors, &cofactorTime, func() error {
		count, err := cofactor.Annotator{Path: opts.CofactorTable, Logger: logger}.Annotate(n)
		result.Stats.Cofactors = count
		if err != nil {
			result.Warnings = append(result.Warnings, err)
		}
		return err
	})

	// Stage 4: Depict
	var depictTime time.Duration
	if !opts.SkipDepiction {
		err = r.stage(ctx, StageDepict, &depictTime, func() error {
			a := &depict.Annotator{
				Depicter: r.Depicter,
				Cache:    r.Cache,
				Keyer:    r.Keyer,
				TTL:      r.CacheTTL,
				Workers:  opts.Workers,
				Timeout:  opts.DepictionTimeout,
				Logger:   logger,
			}
			st, warnings, err := a.Annotate(ctx, n)
			result.Stats.Depictions = st
			result.Warnings = append(result.Warnings, warnings...)
			if len(warnings) > 0 {
				logger.Warn("some chemicals could not be depicted", "failed", st.Failed)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	result.Stats.AnnotateTime = cofactorTime + depictTime
	logger.Info("annotated chemicals",
		"cofactors", result.Stats.Cofactors,
		"depicted", result.Stats.Depictions.Rendered,
		"cached", result.Stats.Depictions.Cached,
		"failed", result.Stats.Depictions.Failed,
		"duration", result.Stats.AnnotateTime)

	// Stage 5: Assemble
	outDir := opts.OutputDir
	if outDir == "" {
		tmp, err := os.MkdirTemp(opts.TempDir, "rpviz-viewer-")
		if err != nil {
			return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "create viewer folder")
		}
		defer os.RemoveAll(tmp)
		outDir = tmp
	} else {
		result.OutputDir = outDir
	}
	doc := viewer.NewDocument(n, result.Context)
	result.PathwaysInfo = doc.PathwaysInfo
	err = r.stage(ctx, StageAssemble, &result.Stats.AssembleTime, func() error {
		a := &viewer.Assembler{TemplateDir: opts.TemplateDir, Logger: logger}
		_, err := a.Assemble(ctx, outDir, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("assembled viewer", "dir", result.OutputDir, "duration", result.Stats.AssembleTime)

	// Stage 6: Bundle
	if opts.Autonomous != "" {
		err = r.stage(ctx, StageBundle, &result.Stats.BundleTime, func() error {
			b := &bundle.Bundler{Logger: logger}
			return b.BundleFile(ctx, outDir, opts.Autonomous)
		})
		if err != nil {
			return nil, err
		}
		result.BundlePath = opts.Autonomous
		logger.Info("wrote autonomous document", "path", opts.Autonomous, "duration", result.Stats.BundleTime)
	}

	return result, nil
}

// Load parses every model of ws and merges them. Models that fail to parse
// or merge are skipped and returned as PARSE_ERROR warnings. It is an error
// when no model at all could be merged.
func (r *Runner) Load(ctx context.Context, ws *input.Workspace, logger *log.Logger) (*network.Network, []error, error) {
	if logger == nil {
		logger = r.Logger
	}
	var (
		loader   sbml.Loader
		merger   = network.NewMerger(logger)
		warnings []error
		merged   int
	)
	for _, path := range ws.Models {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		name, err := filepath.Rel(ws.Dir, path)
		if err != nil {
			name = filepath.Base(path)
		}
		frag, err := loadModel(loader, path, filepath.ToSlash(name))
		if err != nil {
			logger.Warn("skipping model", "file", name, "err", rperrors.UserMessage(err))
			warnings = append(warnings, err)
			continue
		}
		if err := merger.Add(frag); err != nil {
			warnings = append(warnings, err)
			continue
		}
		merged++
	}
	if merged == 0 {
		return nil, warnings, rperrors.New(rperrors.ErrCodeInvalidInput, "none of the %d model files could be loaded", len(ws.Models))
	}
	return merger.Network(), warnings, nil
}

func loadModel(l sbml.Loader, path, name string) (network.Fragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s", name)
	}
	defer f.Close()
	return l.LoadReader(name, f)
}

// stage runs fn between the pipeline hooks and stores its duration in d.
func (r *Runner) stage(ctx context.Context, name string, d *time.Duration, fn func() error) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	*d = time.Since(start)
	hooks.OnStageComplete(ctx, name, *d, err)
	return err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
