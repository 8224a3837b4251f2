package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/rpviz/pkg/sandbox"
)

func (c *CLI) sandboxCommand() *cobra.Command {
	var (
		opts   sandbox.ToolOptions
		docker string
	)

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run build inside a container image",
		Long: `Sandbox copies the input into a temporary folder, mounts it into the rpviz
image and runs build there with networking disabled. The autonomous document
is copied back to --autonomous.`,
		Example: `  rpviz sandbox -i pathways.tar --uid survey-42 -a pathways.html`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.Image == "" {
				opts.Image = cfg.Sandbox.Image
			}
			if docker == "" {
				docker = cfg.Sandbox.DockerBinary
			}
			opts.Logger = c.Logger

			spin := newSpinner(cmd.Context(), "Running "+opts.Image)
			spin.Start()
			res, err := sandbox.RunTool(cmd.Context(), sandbox.DockerCLI{Binary: docker}, opts)
			if err != nil {
				spin.StopWithError("Sandboxed build failed")
				return err
			}
			spin.StopWithSuccess("Sandboxed build finished")
			for _, w := range res.Warnings {
				printWarning("%s", w)
			}
			printFile(opts.Autonomous)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "tar archive or rpSBML file")
	f.StringVar(&opts.Format, "input-format", "", "input kind: tar or sbml (default: detect)")
	f.StringVar(&opts.Chassis, "chassis", "", "chassis organism shown by the viewer")
	f.StringVar(&opts.Target, "target", "", "target compound shown by the viewer")
	f.StringVar(&opts.UniqueID, "uid", "", "session identifier injected into the viewer")
	f.StringVarP(&opts.Autonomous, "autonomous", "a", "", "output HTML document")
	f.StringVar(&opts.Image, "image", "", "container image (default rpviz:latest)")
	f.StringVar(&docker, "docker", "", "docker binary (default docker)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("autonomous")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}
