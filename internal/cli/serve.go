package cli

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rpviz/internal/server"
	"github.com/matzehuels/rpviz/pkg/observability"
	"github.com/matzehuels/rpviz/pkg/publish"
)

type serveFlags struct {
	addr          string
	maxConcurrent int
	noCache       bool
	noMetrics     bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the visualization pipeline over HTTP",
		Long: `Serve runs an HTTP service. POST a model archive as multipart form data to
/api/v1/visualize to receive the autonomous viewer document; run records are
available under /api/v1/runs and prometheus metrics under /metrics.`,
		Example: `  rpviz serve --addr :8080
  curl -F file=@pathways.tar -F uid=survey-42 localhost:8080/api/v1/visualize > pathways.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().IntVar(&flags.maxConcurrent, "max-concurrent", 0, "simultaneous pipeline runs (default 4)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "do not cache depictions")
	cmd.Flags().BoolVar(&flags.noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, flags serveFlags) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.maxConcurrent > 0 {
		cfg.Server.MaxConcurrent = flags.maxConcurrent
	}

	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	runs, err := c.openRunLog(ctx, cfg)
	if err != nil {
		return err
	}
	defer runs.Close()

	var pub publish.Publisher
	if cfg.Publish.URL != "" {
		if pub, err = publish.Open(ctx, cfg.Publish.URL, publish.Options{Logger: c.Logger}); err != nil {
			return err
		}
	}

	srvCfg := server.Config{
		Runner:           runner,
		Runs:             runs,
		Publisher:        pub,
		MaxConcurrent:    cfg.Server.MaxConcurrent,
		MaxUploadBytes:   cfg.Server.MaxUploadMB << 20,
		CofactorTable:    cfg.CofactorTable,
		TemplateDir:      cfg.TemplateDir,
		Workers:          cfg.Workers,
		DepictionTimeout: cfg.DepictionTimeout.D(),
		Logger:           c.Logger,
	}
	if !flags.noMetrics {
		reg := registerMetrics()
		defer observability.Reset()
		srvCfg.Gatherer = reg
	}

	printInfo("Serving on %s", StyleValue.Render(cfg.Server.Addr))
	err = server.New(srvCfg).ListenAndServe(ctx, cfg.Server.Addr)
	if errors.Is(err, context.Canceled) {
		printInfo("Server stopped")
		return nil
	}
	return err
}

// registerMetrics installs prometheus hooks for the pipeline, the cache and
// the server, plus the Go runtime collectors.
func registerMetrics() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	p := observability.NewPrometheus(reg)
	observability.SetPipelineHooks(p)
	observability.SetCacheHooks(p)
	observability.SetServerHooks(p)
	return reg
}
