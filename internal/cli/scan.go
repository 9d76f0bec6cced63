package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dirsage/internal/execdir"
	"dirsage/internal/logging"
	"dirsage/internal/scan"
	"dirsage/internal/sizecalc"
)

func newScanCmd(app *App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "List a directory's children by recursive size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			logger := app.Logger()
			sizer := sizecalc.New(cfg.Scan.MaxDepth, cfg.ResourceLimits.MaxCPUPercent, logging.NewLeveled(logger))
			entries, err := scan.NewScanner(sizer, logger).Scan(args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printEntries(out io.Writer, entries []scan.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SIZE\tTYPE\tNAME")
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.HumanReadableSize, kind, e.Name)
	}
	_ = w.Flush()
}

func newExedirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exedir",
		Short: "Print the directory containing the dirsage executable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := execdir.Dir()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
			return err
		},
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
