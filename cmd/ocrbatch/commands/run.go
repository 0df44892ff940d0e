package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spherical/ocrbatch/cmd/ocrbatch/ui"
	"github.com/spherical/ocrbatch/internal/config"
	"github.com/spherical/ocrbatch/internal/discover"
	"github.com/spherical/ocrbatch/internal/history"
	"github.com/spherical/ocrbatch/internal/invoke"
	"github.com/spherical/ocrbatch/internal/observability"
	"github.com/spherical/ocrbatch/internal/profile"
	"github.com/spherical/ocrbatch/internal/runner"
)

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return setupErr(err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return setupErr(err)
	}
	defer closeLog()

	runID := uuid.NewString()
	logger = logger.With().
		Str("run_id", runID).
		Str("profile", profileName).
		Logger()

	// All setup failures surface before any file is touched.
	if err := profile.ValidateAll(cfg); err != nil {
		return setupErr(err)
	}
	flags, err := profile.Resolve(cfg, profileName)
	if err != nil {
		return setupErr(err)
	}
	logger.Info().Strs("flags", flags).Msg("Resolved profile")

	invoker := invoke.NewDockerInvoker(cfg.Docker, logger)
	if err := invoker.Preflight(ctx); err != nil {
		return setupErr(err)
	}

	sp := ui.NewSpinner("Scanning " + cfg.InputDir)
	sp.Start()
	items, err := discover.Discover(cfg.InputDir)
	sp.Stop()
	if err != nil {
		return setupErr(err)
	}
	logger.Info().Int("count", len(items)).Str("input_dir", cfg.InputDir).Msg("Discovery finished")

	if len(items) == 0 {
		ui.Warning("No PDF files found under %s", cfg.InputDir)
		return nil
	}

	if !confirmWorkList(items) {
		logger.Info().Msg("Run cancelled at confirmation prompt")
		ui.Message("Aborted.")
		return nil
	}

	bar := ui.NewProgressBar(int64(len(items)), "Processing PDFs")
	progress := func(done, total int, res runner.FileResult) {
		bar.Set(int64(done))
	}

	startedAt := time.Now()
	run := runner.New(invoker, logger, cfg.Workers, progress)
	summary, runErr := run.Run(ctx, items, flags)
	bar.Finish()

	recordHistory(cfg, logger, history.Run{
		ID:        runID,
		Profile:   profileName,
		InputDir:  cfg.InputDir,
		StartedAt: startedAt,
		Elapsed:   summary.Elapsed,
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	}, summary.Results)

	printSummary(summary)

	if runErr != nil {
		return setupErr(runErr)
	}
	if summary.Failure() {
		return partialErr(summary.Failed, summary.Total)
	}
	return nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, func() error, error) {
	printLevel := cfg.Logging.PrintLevel
	if verbose {
		printLevel = "debug"
	}
	return observability.New(observability.LogConfig{
		Level:      cfg.Logging.Level,
		PrintLevel: printLevel,
		LogFile:    cfg.Logging.LogFile,
	})
}

func confirmWorkList(items []discover.WorkItem) bool {
	if assumeYes {
		return true
	}

	pending := 0
	ui.Section("Files to process")
	for _, item := range items {
		if item.OutputExists {
			ui.Message("  %s (output exists, will skip)", item.Path)
			continue
		}
		pending++
		ui.Message("  %s", item.Path)
	}
	ui.Newline()

	if pending == 0 {
		ui.Info("All outputs already exist, nothing to do")
	}

	ok, err := ui.Confirm("Continue?", false)
	if err != nil {
		return false
	}
	return ok
}

// recordHistory persists the run when a history database is configured.
// History failures never affect the batch outcome.
func recordHistory(cfg *config.Config, logger zerolog.Logger, run history.Run, results []runner.FileResult) {
	if cfg.History.Path == "" {
		return
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Run history unavailable")
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.RecordRun(ctx, run, results); err != nil {
		logger.Warn().Err(err).Msg("Failed to record run history")
	}
}

func printSummary(summary *runner.Summary) {
	ui.Newline()
	for _, res := range summary.Results {
		if res.Status != runner.StatusFailed {
			continue
		}
		if res.ExitCode < 0 {
			ui.Error("%s: ocr did not complete (timed out)", res.Item.Path)
			continue
		}
		ui.Error("%s: ocrmypdf exited %d", res.Item.Path, res.ExitCode)
	}

	if summary.Failure() {
		ui.Warning("%d succeeded, %d failed, %d skipped (of %d) in %s",
			summary.Succeeded, summary.Failed, summary.Skipped, summary.Total,
			summary.Elapsed.Round(time.Second))
		return
	}
	ui.Success("%d succeeded, %d skipped (of %d) in %s",
		summary.Succeeded, summary.Skipped, summary.Total,
		summary.Elapsed.Round(time.Second))
}
