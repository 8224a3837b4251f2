package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rpviz/pkg/bundle"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

func (c *CLI) bundleCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "bundle [viewer-folder]",
		Short: "Inline a viewer folder into one self-contained HTML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return rperrors.New(rperrors.ErrCodeInvalidInput, "--output is required")
			}
			prog := newProgress(c.Logger)
			b := &bundle.Bundler{Logger: c.Logger}
			if err := b.BundleFile(cmd.Context(), args[0], output); err != nil {
				return err
			}
			prog.done("Bundled viewer")

			info, err := os.Stat(output)
			if err != nil {
				return rperrors.Wrap(rperrors.ErrCodeIO, err, "stat %s", output)
			}
			printSuccess("Autonomous document (%s)", formatBytes(info.Size()))
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output HTML file")
	return cmd
}

// formatBytes renders n with a binary unit, e.g. "1.5 MiB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
