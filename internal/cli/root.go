package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/rpviz/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "rpviz turns retrosynthesis pathways into an interactive viewer",
		Long: `rpviz loads rpSBML pathway models, merges them into one reaction network,
annotates cofactors and structure depictions, and writes an HTML viewer that
can be opened directly or bundled into a single self-contained document.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "configuration file (default $XDG_CONFIG_HOME/rpviz/config.toml)")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.bundleCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.sandboxCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
