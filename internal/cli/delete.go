package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dirsage/internal/cleanup"
	"dirsage/internal/database"
	"dirsage/internal/logging"
	"dirsage/internal/safety"
	"dirsage/internal/sizecalc"
)

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Delete files and directory trees, stopping at the first failure",
		Long: `Delete each path in order. Directories are removed recursively.

The batch stops at the first path that does not exist or cannot be removed;
paths deleted before it stay deleted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			if !yes && !confirm(cmd, args) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}

			logger := app.Logger()
			eraser := cleanup.NewEraser(logger)
			eraser.SetSizer(sizecalc.New(cfg.Scan.MaxDepth, cfg.ResourceLimits.MaxCPUPercent, logging.NewLeveled(logger)))
			eraser.SetValidator(safety.FromConfig(cfg))

			if cfg.HistoryEnabled() {
				db, err := database.NewDeletionDB(cfg.DatabasePath)
				if err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: deletion history unavailable: %v\n", err)
				} else {
					defer db.Close()
					eraser.SetRecorder(db)
				}
			}

			if err := eraser.DeleteAll(args); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d path(s)\n", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, paths []string) bool {
	out := cmd.OutOrStdout()
	for _, p := range paths {
		_, _ = fmt.Fprintf(out, "  %s\n", p)
	}
	_, _ = fmt.Fprintf(out, "Delete %d path(s)? [y/N] ", len(paths))

	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
