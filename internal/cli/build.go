package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/rpviz/pkg/config"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/pipeline"
	"github.com/matzehuels/rpviz/pkg/publish"
	"github.com/matzehuels/rpviz/pkg/runlog"
)

// buildFlags holds the build flags that do not map onto pipeline.Options.
type buildFlags struct {
	noCache  bool
	noRecord bool
	publish  string
}

func (c *CLI) buildCommand() *cobra.Command {
	var (
		opts  pipeline.Options
		flags buildFlags
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a pathway viewer from rpSBML models",
		Long: `Build loads every model of the input (a tar archive, a folder or a single
rpSBML file), merges them into one network, annotates cofactors and structure
depictions, and writes the viewer to --output. With --autonomous the viewer is
also inlined into one self-contained HTML document.`,
		Example: `  rpviz build -i pathways.tar --uid survey-42 -o viewer
  rpviz build -i pathways.tar --uid survey-42 --autonomous pathways.html --publish s3://bucket/runs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			applyConfig(&opts, cfg, cmd.Flags())
			if flags.publish == "" {
				flags.publish = cfg.Publish.URL
			}
			if flags.publish != "" && opts.Autonomous == "" {
				return rperrors.New(rperrors.ErrCodeInvalidInput, "--publish requires --autonomous")
			}
			return c.runBuild(cmd.Context(), cfg, opts, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "tar archive, folder or rpSBML file")
	f.StringVar(&opts.Format, "input-format", "", "input kind: tar, dir or sbml (default: detect)")
	f.StringVar(&opts.Chassis, "chassis", "", "chassis organism shown by the viewer")
	f.StringVar(&opts.Target, "target", "", "target compound shown by the viewer")
	f.StringVar(&opts.UniqueID, "uid", "", "session identifier injected into the viewer")
	f.StringVarP(&opts.OutputDir, "output", "o", "", "viewer output folder")
	f.StringVarP(&opts.Autonomous, "autonomous", "a", "", "write a self-contained HTML document")
	f.StringVar(&opts.CofactorTable, "cofactor-table", "", "custom cofactor table (TSV)")
	f.StringVar(&opts.TemplateDir, "template-folder", "", "custom viewer templates")
	f.IntVar(&opts.Workers, "workers", 0, "parallel depictions (default: number of CPUs)")
	f.DurationVar(&opts.DepictionTimeout, "depiction-timeout", 0, "time limit per depiction (default 10s)")
	f.BoolVar(&opts.SkipDepiction, "skip-depiction", false, "do not depict chemical structures")
	f.BoolVar(&flags.noCache, "no-cache", false, "do not read or write the depiction cache")
	f.BoolVar(&flags.noRecord, "no-record", false, "do not save a run record")
	f.StringVar(&flags.publish, "publish", "", "upload the autonomous document to a folder, file:// or s3:// URL")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}

// applyConfig fills options the user did not set on the command line.
func applyConfig(opts *pipeline.Options, cfg *config.Config, flags *pflag.FlagSet) {
	if !flags.Changed("workers") && cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	if !flags.Changed("depiction-timeout") && cfg.DepictionTimeout > 0 {
		opts.DepictionTimeout = cfg.DepictionTimeout.D()
	}
	if opts.CofactorTable == "" {
		opts.CofactorTable = cfg.CofactorTable
	}
	if opts.TemplateDir == "" {
		opts.TemplateDir = cfg.TemplateDir
	}
}

func (c *CLI) runBuild(ctx context.Context, cfg *config.Config, opts pipeline.Options, flags buildFlags) error {
	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	opts.Logger = c.Logger
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		return err
	}
	prog.done("Built viewer")

	printSuccess("Viewer for %s", StyleValue.Render(res.Context.UniqueID))
	printStats(res.Stats)
	if res.OutputDir != "" {
		printFile(res.OutputDir)
	}
	if res.BundlePath != "" {
		printFile(res.BundlePath)
	}
	printWarnings(res.Warnings)

	location := ""
	if flags.publish != "" {
		if location, err = c.publishDocument(ctx, flags.publish, res.BundlePath); err != nil {
			return err
		}
		printLink(location)
	}

	if !flags.noRecord {
		c.saveRecord(ctx, cfg, runlog.NewRecord(res, location))
	}
	if res.OutputDir != "" {
		printNextStep("Open", filepath.Join(res.OutputDir, "index.html"))
	}
	return nil
}

func (c *CLI) publishDocument(ctx context.Context, dest, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "read %s", path)
	}
	p, err := publish.Open(ctx, dest, publish.Options{Logger: c.Logger})
	if err != nil {
		return "", err
	}
	spin := newSpinner(ctx, "Publishing "+filepath.Base(path))
	spin.Start()
	location, err := p.Publish(ctx, filepath.Base(path), data)
	spin.Stop()
	return location, err
}

// saveRecord stores the run record. Failures are logged; the run itself
// succeeded.
func (c *CLI) saveRecord(ctx context.Context, cfg *config.Config, rec runlog.Record) {
	store, err := c.openRunLog(ctx, cfg)
	if err != nil {
		c.Logger.Warn("run record not saved", "err", err)
		return
	}
	defer store.Close()
	if err := store.Save(ctx, rec); err != nil {
		c.Logger.Warn("run record not saved", "err", err)
		return
	}
	c.Logger.Debug("saved run record", "uid", rec.SessionID, "run", rec.RunID)
}
