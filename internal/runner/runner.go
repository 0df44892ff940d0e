// Package runner drives the batch: it feeds discovered work items to the
// invoker, isolates per-file failures, and keeps the run accounting.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/ocrbatch/internal/discover"
	"github.com/spherical/ocrbatch/internal/invoke"
)

// FileStatus classifies the outcome of one work item.
type FileStatus string

const (
	StatusSucceeded FileStatus = "succeeded"
	StatusFailed    FileStatus = "failed"
	StatusSkipped   FileStatus = "skipped"
)

// FileResult is the per-item outcome, used for logging, history, and the
// end-of-run summary.
type FileResult struct {
	Item     discover.WorkItem
	Status   FileStatus
	ExitCode int
	Output   string
	Duration time.Duration
}

// Summary is the run accounting. Counters are final once Run returns.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
	Results   []FileResult
}

// Failure reports whether at least one file failed OCR.
func (s *Summary) Failure() bool {
	return s.Failed > 0
}

// ProgressFunc is called after each item completes, with the number of
// items done so far out of total. Called from worker goroutines.
type ProgressFunc func(done, total int, result FileResult)

// Runner processes a work list with a bounded pool of workers. Workers of 1
// gives strictly sequential processing. Each file is submitted exactly once,
// so no two container instances ever run against the same input.
type Runner struct {
	invoker  invoke.Invoker
	logger   zerolog.Logger
	workers  int
	progress ProgressFunc
}

// New creates a Runner. workers below 1 is treated as 1.
func New(invoker invoke.Invoker, logger zerolog.Logger, workers int, progress ProgressFunc) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{invoker: invoker, logger: logger, workers: workers, progress: progress}
}

// Run processes all items with the given resolved profile flags. Per-file
// failures are logged and counted without stopping the batch; only a fatal
// transport error (or cancellation) aborts the run early. The returned
// Summary is valid in both cases.
func (r *Runner) Run(ctx context.Context, items []discover.WorkItem, flags []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Total: len(items)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		fatalErr error
		done     int
	)

	record := func(res FileResult) {
		mu.Lock()
		switch res.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
		summary.Results = append(summary.Results, res)
		done++
		current := done
		mu.Unlock()

		if r.progress != nil {
			r.progress(current, summary.Total, res)
		}
	}

	work := make(chan discover.WorkItem)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				res, err := r.processItem(ctx, item, flags)
				if err != nil {
					mu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
				record(res)
			}
		}()
	}

submit:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break submit
		case work <- item:
		}
	}
	close(work)
	wg.Wait()

	summary.Elapsed = time.Since(start)

	mu.Lock()
	err := fatalErr
	mu.Unlock()
	if err == nil && ctx.Err() != nil && done < summary.Total {
		err = ctx.Err()
	}

	r.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("elapsed", summary.Elapsed).
		Msg("Batch finished")

	return summary, err
}

func (r *Runner) processItem(ctx context.Context, item discover.WorkItem, flags []string) (FileResult, error) {
	if item.OutputExists {
		r.logger.Info().
			Str("file", item.Path).
			Str("output", item.OutputPath).
			Msg("Output already exists, skipping")
		return FileResult{Item: item, Status: StatusSkipped}, nil
	}

	r.logger.Info().Str("file", item.Path).Msg("Processing PDF")

	res, err := r.invoker.Run(ctx, item, flags)
	if err != nil {
		return FileResult{}, err
	}

	result := FileResult{
		Item:     item,
		ExitCode: res.ExitCode,
		Output:   res.Output,
		Duration: res.Duration,
	}

	if res.OK() {
		result.Status = StatusSucceeded
		r.logger.Info().
			Str("file", item.Path).
			Str("output", item.OutputPath).
			Dur("duration", res.Duration).
			Msg("OCR succeeded")
	} else {
		result.Status = StatusFailed
		r.logger.Error().
			Str("file", item.Path).
			Int("exit_code", res.ExitCode).
			Str("diagnostics", res.Output).
			Msg("OCR failed")
	}

	return result, nil
}
