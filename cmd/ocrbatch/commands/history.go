package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/ocrbatch/cmd/ocrbatch/ui"
	"github.com/spherical/ocrbatch/internal/config"
	"github.com/spherical/ocrbatch/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent batch runs from the history database",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return setupErr(err)
	}

	if cfg.History.Path == "" {
		ui.Warning("Run history is not configured (set history.path in %s)", cfgFile)
		return nil
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return setupErr(err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return setupErr(err)
	}

	if len(runs) == 0 {
		ui.Info("No runs recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.Profile,
			fmt.Sprintf("%d", run.Total),
			fmt.Sprintf("%d", run.Succeeded),
			fmt.Sprintf("%d", run.Failed),
			fmt.Sprintf("%d", run.Skipped),
			run.Elapsed.Round(time.Second).String(),
		})
	}
	ui.Table([]string{"STARTED", "PROFILE", "TOTAL", "OK", "FAILED", "SKIPPED", "ELAPSED"}, rows)
	return nil
}
