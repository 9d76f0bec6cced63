package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dirsage/internal/database"
	"dirsage/internal/scan"
)

type historyOptions struct {
	dbPath     string
	recent     int
	stats      bool
	days       int
	action     string
	path       string
	largest    int
	jsonOutput bool
}

func newHistoryCmd(app *App) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the deletion history",
		Example: `  dirsage history --recent 10          # 10 most recent rows
  dirsage history --stats --days 30    # statistics for the last 30 days
  dirsage history --action BLOCKED     # only blocked paths
  dirsage history --path '/var/log/%'  # rows under /var/log
  dirsage history --largest 10         # 10 largest deletions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := opts.dbPath
			if dbPath == "" {
				cfg, err := app.Config()
				if err != nil {
					return err
				}
				if !cfg.HistoryEnabled() {
					return usageError("deletion history is disabled (database_path is %q)", cfg.DatabasePath)
				}
				dbPath = cfg.DatabasePath
			}

			db, err := database.NewDeletionDB(dbPath)
			if err != nil {
				return fmt.Errorf("open database %s: %w", dbPath, err)
			}
			defer db.Close()

			return runHistory(cmd.OutOrStdout(), db, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "path to deletion database (default: database_path from config)")
	f.IntVar(&opts.recent, "recent", 0, "show N most recent rows")
	f.BoolVar(&opts.stats, "stats", false, "show deletion statistics")
	f.IntVar(&opts.days, "days", 30, "number of days for --stats")
	f.StringVar(&opts.action, "action", "", "filter by action (DELETE, NOT_FOUND, ERROR, BLOCKED)")
	f.StringVar(&opts.path, "path", "", "filter by path pattern (SQL LIKE syntax)")
	f.IntVar(&opts.largest, "largest", 0, "show N largest deletions")
	f.BoolVar(&opts.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runHistory(out io.Writer, db *database.DeletionDB, opts *historyOptions) error {
	var (
		records []database.DeletionRecord
		title   string
		err     error
	)

	switch {
	case opts.stats:
		return showStats(out, db, opts.days, opts.jsonOutput)
	case opts.recent > 0:
		records, err = db.GetRecentDeletions(opts.recent)
	case opts.action != "":
		action := strings.ToUpper(opts.action)
		records, err = db.GetDeletionsByAction(action)
		title = "Records with action: " + action
	case opts.path != "":
		records, err = db.GetDeletionsByPath(opts.path)
		title = "Records matching path pattern: " + opts.path
	case opts.largest > 0:
		records, err = db.GetLargestDeletions(opts.largest)
		title = fmt.Sprintf("Largest %d deletions:", opts.largest)
	default:
		return usageError("one of --recent, --stats, --action, --path or --largest is required")
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if opts.jsonOutput {
		if records == nil {
			records = []database.DeletionRecord{}
		}
		return writeJSON(out, records)
	}
	if title != "" {
		_, _ = fmt.Fprintf(out, "%s\n\n", title)
	}
	printRecords(out, records)
	return nil
}

func showStats(out io.Writer, db *database.DeletionDB, days int, jsonOutput bool) error {
	stats, err := db.GetDeletionStats(days)
	if err != nil {
		return fmt.Errorf("query statistics: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, stats)
	}

	_, _ = fmt.Fprintf(out, "Deletion Statistics (Last %d days)\n", days)
	_, _ = fmt.Fprintf(out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	_, _ = fmt.Fprintf(out, "Batches:          %d\n", stats.TotalBatches)
	_, _ = fmt.Fprintf(out, "Total Deletions:  %d\n", stats.TotalDeletions)
	_, _ = fmt.Fprintf(out, "Not Found:        %d\n", stats.TotalNotFound)
	_, _ = fmt.Fprintf(out, "Blocked:          %d\n", stats.TotalBlocked)
	_, _ = fmt.Fprintf(out, "Errors:           %d\n", stats.TotalErrors)
	_, _ = fmt.Fprintf(out, "Space Freed:      %s\n", scan.FormatSize(uint64(max(stats.TotalSpaceFreed, 0))))

	printCounts(out, "By Object Type:", stats.ByObjectType)
	return nil
}

func printCounts(out io.Writer, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(out, "\n%s\n", heading)
	for _, k := range keys {
		_, _ = fmt.Fprintf(out, "  %-15s %d\n", k, counts[k])
	}
}

func printRecords(out io.Writer, records []database.DeletionRecord) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t----")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Action,
			scan.FormatSize(uint64(max(r.Size, 0))),
			r.Path,
		)
	}
	_ = w.Flush()
}
