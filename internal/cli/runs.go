package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rpviz/pkg/runlog"
)

func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run records",
	}
	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openRunLog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No runs recorded")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %s  %s\n",
					StyleDim.Render(rec.CreatedAt.Local().Format(time.DateTime)),
					StyleValue.Render(rec.SessionID),
					StyleDim.Render(fmt.Sprintf("%d pathways · %d chemicals · %d warnings", rec.Pathways, rec.Chemicals, len(rec.Warnings))))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [uid]",
		Short: "Show the latest run of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openRunLog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func printRecord(rec *runlog.Record) {
	fmt.Println(StyleTitle.Render(rec.SessionID))
	printKeyValue("run", rec.RunID)
	printKeyValue("created", rec.CreatedAt.Local().Format(time.DateTime))
	printKeyValue("chassis", rec.Chassis)
	printKeyValue("target", rec.Target)
	printKeyValue("models", fmt.Sprintf("%d (%d skipped)", rec.Models, rec.ModelsSkipped))
	printKeyValue("pathways", strconv.Itoa(rec.Pathways))
	printKeyValue("chemicals", strconv.Itoa(rec.Chemicals))
	printKeyValue("reactions", strconv.Itoa(rec.Reactions))
	printKeyValue("cofactors", strconv.Itoa(rec.Cofactors))
	printKeyValue("depicted", fmt.Sprintf("%d (%d failed)", rec.Depicted, rec.DepictionsFailed))
	if rec.Bundle != "" {
		printKeyValue("document", rec.Bundle)
	}
	for _, w := range rec.Warnings {
		printWarning("%s", w)
	}
}
