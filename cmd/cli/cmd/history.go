// Package cmd - history commands
package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"circularity-gap/adapters/storage"
	"circularity-gap/core/output"
	"circularity-gap/core/ui"
	"circularity-gap/internal/config"
	cgerrors "circularity-gap/internal/errors"
)

var (
	historyDir    string
	historyLimit  int
	historyJSON   bool
	historySchema string
	historySince  string
	historyUntil  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and compare archived runs",
	Long: `Every compute run records a summary in the archive directory
(output.archive_dir, default .cgap/runs). Runs can be referred to by a
unique prefix of their id.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Long: `List archived runs, newest first. --since and --until take a date
(2011-06-01), an RFC 3339 timestamp or a duration back from now (72h).

Examples:
  cgap history list --schema exiobase-mr-hiot-3.3.15
  cgap history list --since 168h -n 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := listFilter(time.Now())
		if err != nil {
			return err
		}

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(cmd, runs)
		}

		w := ui.NewWriter(cmd.OutOrStdout(), noColor)
		if len(runs) == 0 {
			w.Info("No archived runs in %s", store.Path())
			return nil
		}
		table := w.NewTable("Run", "Started", "Schema", "Global gap (Gt)", "Source").AlignRight(3)
		for _, r := range runs {
			table.AddRow(r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.SchemaVersion,
				output.Number(r.GlobalGap, config.Get().Output.Precision), r.Source)
		}
		table.Render()
		return nil
	},
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare <old-run> <new-run>",
	Short: "Show how the circularity gap changed between two runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := storage.CompareIDs(cmd.Context(), store, args[0], args[1])
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(cmd, res)
		}
		renderComparison(ui.NewWriter(cmd.OutOrStdout(), noColor), res, config.Get().Output.Precision)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run>",
	Short: "Remove a run from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), run.ID); err != nil {
			return err
		}
		status().Success("Deleted run %s", run.ID)
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyCompareCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyCmd.PersistentFlags().StringVar(&historyDir, "archive", "", "archive directory (default: output.archive_dir)")
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "print JSON instead of a table")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	historyListCmd.Flags().StringVar(&historySchema, "schema", "", "only runs computed with this schema version")
	historyListCmd.Flags().StringVar(&historySince, "since", "", "only runs started at or after this time")
	historyListCmd.Flags().StringVar(&historyUntil, "until", "", "only runs started at or before this time")
}

// listFilter builds the list filter from the flags; relative times count back from now
func listFilter(now time.Time) (*storage.ListFilter, error) {
	filter := &storage.ListFilter{SchemaVersion: historySchema, Limit: historyLimit}
	var err error
	if filter.Since, err = parseTime(historySince, now); err != nil {
		return nil, err
	}
	if filter.Until, err = parseTime(historyUntil, now); err != nil {
		return nil, err
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && filter.Until.Before(filter.Since) {
		return nil, cgerrors.Input("--until is before --since")
	}
	return filter, nil
}

func parseTime(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, cgerrors.Input(fmt.Sprintf("cannot parse time %q (use 2006-01-02, RFC 3339 or a duration such as 72h)", value))
}

func openArchive() (*storage.FileStore, error) {
	dir := historyDir
	if dir == "" {
		dir = config.Get().Output.ArchiveDir
	}
	if dir == "" {
		return nil, cgerrors.Config("no archive directory configured (output.archive_dir or --archive)", nil)
	}
	return storage.NewFileStore(dir)
}

func renderComparison(w *ui.Writer, res *storage.CompareResult, precision int32) {
	if res.SchemaChanged {
		w.Warning("Runs used different schemas; class totals may not be comparable")
	}

	diff := w.NewRunDiff()
	diff.OldRun = res.OldID
	diff.NewRun = res.NewID
	for _, d := range res.Classes {
		diff.Changed = append(diff.Changed, diffItem(d, "Gt", precision))
	}
	for _, d := range res.Regions {
		diff.Changed = append(diff.Changed, diffItem(d, "t", precision))
	}
	diff.Total = diffItem(res.Total, "Gt", precision)
	diff.Render()
}

func diffItem(d storage.Delta, unit string, precision int32) ui.DiffItem {
	change := fmt.Sprintf("%s %s", output.Number(d.Delta, precision), unit)
	if d.Old != 0 {
		change += fmt.Sprintf(", %s%%", output.Number(d.DeltaPercent, 1))
	}
	return ui.DiffItem{
		Label:      d.Label,
		Old:        output.Number(d.Old, precision),
		New:        output.Number(d.New, precision),
		Change:     change,
		IsIncrease: d.Delta > 0,
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
