// Package pipeline provides the core visualization pipeline for rpviz.
//
// This package implements the complete input → load → annotate → assemble →
// bundle pipeline used by the CLI and the HTTP service, so that both entry
// points behave identically.
//
// # Architecture
//
// The pipeline runs these stages in order:
//
//  1. Input: resolve a tar archive, directory or single model into a workspace
//  2. Load: parse every model file and merge the fragments into one network
//  3. Cofactors: classify chemicals against a cofactor table
//  4. Depict: render a 2D depiction for every chemical with a SMILES
//  5. Assemble: write the viewer directory and inject the session identifier
//  6. Bundle: optionally inline the viewer into one self-contained document
//
// Entity-scoped failures (a model that does not parse, a chemical that cannot
// be depicted, a missing cofactor table) are collected in [Result.Warnings]
// and the run continues. Pipeline-scoped failures (unknown input format,
// failed injection, unwritable output) abort the run. Every temporary
// directory a run creates is removed before Execute returns.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:      "pathways.tar",
//	    UniqueID:   "survey-42",
//	    OutputDir:  "viewer",
//	    Autonomous: "pathways.html",
//	})
package pipeline

import (
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rpviz/pkg/depict"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/input"
	"github.com/matzehuels/rpviz/pkg/network"
)

// Stage names reported to the pipeline hooks.
const (
	StageInput     = "input"
	StageLoad      = "load"
	StageCofactors = "cofactors"
	StageDepict    = "depict"
	StageAssemble  = "assemble"
	StageBundle    = "bundle"
)

// DefaultDepictionTimeout bounds a single chemical depiction.
const DefaultDepictionTimeout = depict.DefaultTimeout

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for service requests.
type Options struct {
	// Input
	Input           string `json:"input"`
	Format          string `json:"input_format,omitempty"` // tar, dir, sbml or empty to detect
	TempDir         string `json:"-"`                      // parent of temporary workspaces
	MaxExtractBytes int64  `json:"-"`

	// Contextual labels
	Chassis  string `json:"chassis_name,omitempty"`
	Target   string `json:"target_name,omitempty"`
	UniqueID string `json:"uid"`

	// Annotation
	CofactorTable    string        `json:"cofactor_table,omitempty"` // empty uses the built-in table
	SkipDepiction    bool          `json:"skip_depiction,omitempty"`
	Workers          int           `json:"workers,omitempty"`
	DepictionTimeout time.Duration `json:"depiction_timeout,omitempty"`

	// Output
	OutputDir   string `json:"output_dir,omitempty"`
	Autonomous  string `json:"autonomous,omitempty"` // path of the self-contained document
	TemplateDir string `json:"template_dir,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	format    input.Format
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and run records.
	RunID string

	// Network is the merged and annotated network.
	Network *network.Network

	// PathwaysInfo is the per-pathway summary written to network.json.
	PathwaysInfo map[string]network.PathwayInfo

	// Context holds the labels shown by the viewer.
	Context network.ContextualInfo

	// OutputDir is the assembled viewer directory. Empty when the viewer was
	// only assembled to build the autonomous document.
	OutputDir string

	// BundlePath is the autonomous document, if one was requested.
	BundlePath string

	// Warnings collects entity-scoped failures: PARSE_ERROR for skipped
	// models and ANNOTATION_WARNING for cofactor and depiction problems.
	Warnings []error

	// Stats contains counts and timings.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Models        int // model files found in the input
	ModelsSkipped int // model files that failed to load or merge
	Chemicals     int
	Reactions     int
	Pathways      int
	Cofactors     int
	Depictions    depict.Stats

	InputTime    time.Duration
	LoadTime     time.Duration
	AnnotateTime time.Duration
	AssembleTime time.Duration
	BundleTime   time.Duration
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
//
// An empty UniqueID is accepted here: it fails the run at injection time
// with INJECTION_FAILED, after which no autonomous document is written.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return rperrors.New(rperrors.ErrCodeInvalidInput, "input is required")
	}
	if o.OutputDir == "" && o.Autonomous == "" {
		return rperrors.New(rperrors.ErrCodeInvalidInput, "output folder or autonomous output is required")
	}
	f, err := input.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.format = f
	if o.UniqueID != "" {
		if err := rperrors.ValidateSessionID(o.UniqueID); err != nil {
			return err
		}
	}
	if o.Workers < 0 {
		return rperrors.New(rperrors.ErrCodeInvalidInput, "workers must not be negative")
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.DepictionTimeout <= 0 {
		o.DepictionTimeout = DefaultDepictionTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ContextualInfo returns the viewer labels for these options.
func (o *Options) ContextualInfo() network.ContextualInfo {
	return network.NewContextualInfo(o.Chassis, o.Target, o.UniqueID)
}
