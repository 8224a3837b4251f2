// Package pkg provides the core libraries for rpviz, the retrosynthesis
// pathway viewer.
//
// # Overview
//
// rpviz turns a set of rpSBML pathway models into an interactive HTML viewer.
// Each model describes one candidate pathway from a chassis organism's
// metabolism to a target compound; rpviz merges them into one reaction
// network, classifies cofactors, depicts chemical structures and writes the
// network into a viewer that runs in any browser without a server.
//
// The typical data flow:
//
//	tar archive / folder / rpSBML file
//	         ↓
//	    [input] package (workspace with the model files)
//	         ↓
//	    [sbml] package (one fragment per model)
//	         ↓
//	    [network] package (identity normalization + merge)
//	         ↓
//	    [cofactor] and [depict] packages (annotation)
//	         ↓
//	    [viewer] package (viewer folder + session identifier)
//	         ↓
//	    [bundle] package (one self-contained document)
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Input:      "pathways.tar",
//	    Chassis:    "Escherichia coli",
//	    UniqueID:   "survey-42",
//	    OutputDir:  "viewer",
//	    Autonomous: "pathways.html",
//	})
//
// # Main Packages
//
// ## Domain
//
// [network] - Chemicals, reactions and pathways with invariant-enforcing
// constructors. Chemicals are identified by a normalized structure key
// (InChIKey, then InChI, then SMILES) so the same compound reached by two
// pathways becomes one node.
//
// [sbml] - Model loader for rpSBML files: species, reactions with EC numbers
// and rule scores, pathway scores and the target species.
//
// [cofactor] - Reference table of cofactors and the annotator that flags
// them in a network.
//
// [depict] - SMILES parser and 2D depiction through Graphviz, run in
// parallel with per-chemical time limits and a shared cache.
//
// ## Output
//
// [viewer] - Embedded viewer templates, the network.json document and
// session identifier injection.
//
// [bundle] - Inlines scripts, stylesheets and images of a viewer folder into
// one HTML document.
//
// [publish] - Uploads that document to a folder or an S3 bucket.
//
// ## Infrastructure
//
// [pipeline] - The complete input → load → annotate → assemble → bundle run
// used by the CLI and the HTTP service.
//
// [input] - Resolves tar archives (optionally gzip, bzip2 or zstd
// compressed), folders and single model files into a scoped workspace.
//
// [cache] - Depiction cache with file, redis and null backends.
//
// [runlog] - Run records keyed by session identifier (files or MongoDB).
//
// [sandbox] - Runs the build inside a container image.
//
// [config] - TOML or YAML configuration file.
//
// [observability] - Hooks for pipeline, cache and server events, with a
// prometheus implementation.
//
// [errors] - Coded errors and the fatal/warning taxonomy.
//
// [buildinfo] - Version information set at build time.
//
// [input]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/input
// [sbml]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/sbml
// [network]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/network
// [cofactor]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/cofactor
// [depict]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/depict
// [viewer]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/viewer
// [bundle]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/bundle
// [publish]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/publish
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/cache
// [runlog]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/runlog
// [sandbox]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/sandbox
// [config]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/rpviz/pkg/buildinfo
package pkg
