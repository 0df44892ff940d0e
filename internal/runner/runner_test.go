package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/ocrbatch/internal/discover"
	"github.com/spherical/ocrbatch/internal/invoke"
)

// stubInvoker scripts per-file outcomes by input base name.
type stubInvoker struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]int   // base name -> exit code
	fatal    map[string]error // base name -> transport error
	delay    time.Duration
}

func (s *stubInvoker) Preflight(ctx context.Context) error { return nil }

func (s *stubInvoker) Run(ctx context.Context, item discover.WorkItem, flags []string) (invoke.Result, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return invoke.Result{}, fmt.Errorf("interrupted: %w", ctx.Err())
		case <-time.After(s.delay):
		}
	}

	name := item.Name()
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	if err, ok := s.fatal[name]; ok {
		return invoke.Result{}, err
	}
	if code, ok := s.failures[name]; ok {
		return invoke.Result{
			ExitCode: code,
			Output:   "ocrmypdf: some pages could not be processed",
			Err:      fmt.Errorf("ocrmypdf exited %d", code),
		}, nil
	}
	return invoke.Result{Duration: time.Millisecond}, nil
}

func itemsNamed(names ...string) []discover.WorkItem {
	items := make([]discover.WorkItem, len(names))
	for i, name := range names {
		items[i] = discover.WorkItem{
			Path:       filepath.Join("/scans", name),
			OutputPath: filepath.Join("/scans", name[:len(name)-4]+"_ocr.pdf"),
		}
	}
	return items
}

func TestRunAllSucceed(t *testing.T) {
	stub := &stubInvoker{}
	r := New(stub, zerolog.Nop(), 1, nil)

	summary, err := r.Run(context.Background(), itemsNamed("a.pdf", "b.pdf", "c.pdf"), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.Failure())
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, stub.calls)
}

func TestRunPerFileFailureDoesNotStopBatch(t *testing.T) {
	stub := &stubInvoker{failures: map[string]int{"b.pdf": 2}}
	r := New(stub, zerolog.Nop(), 1, nil)

	summary, err := r.Run(context.Background(), itemsNamed("a.pdf", "b.pdf", "c.pdf"), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.Failure())
	assert.Len(t, stub.calls, 3, "batch must continue past a failed file")

	var failed *FileResult
	for i := range summary.Results {
		if summary.Results[i].Status == StatusFailed {
			failed = &summary.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "b.pdf", failed.Item.Name())
	assert.Equal(t, 2, failed.ExitCode)
	assert.Contains(t, failed.Output, "ocrmypdf")
}

func TestRunSkipsExistingOutput(t *testing.T) {
	items := itemsNamed("a.pdf", "b.pdf")
	items[1].OutputExists = true

	stub := &stubInvoker{}
	r := New(stub, zerolog.Nop(), 1, nil)

	summary, err := r.Run(context.Background(), items, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"a.pdf"}, stub.calls, "skipped items must not be invoked")
}

func TestRunFatalErrorAbortsBatch(t *testing.T) {
	stub := &stubInvoker{
		fatal: map[string]error{"a.pdf": fmt.Errorf("start: %w", invoke.ErrExternalToolUnavailable)},
	}
	r := New(stub, zerolog.Nop(), 1, nil)

	summary, err := r.Run(context.Background(), itemsNamed("a.pdf", "b.pdf", "c.pdf"), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, invoke.ErrExternalToolUnavailable))
	assert.Equal(t, []string{"a.pdf"}, stub.calls, "no further files after a transport failure")
	assert.Zero(t, summary.Succeeded)
}

func TestRunProgressCallback(t *testing.T) {
	stub := &stubInvoker{}

	var mu sync.Mutex
	var seen []int
	progress := func(done, total int, res FileResult) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		seen = append(seen, done)
	}

	r := New(stub, zerolog.Nop(), 1, progress)
	_, err := r.Run(context.Background(), itemsNamed("a.pdf", "b.pdf", "c.pdf"), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRunConcurrentWorkers(t *testing.T) {
	stub := &stubInvoker{delay: 10 * time.Millisecond, failures: map[string]int{"c.pdf": 1}}
	r := New(stub, zerolog.Nop(), 4, nil)

	summary, err := r.Run(context.Background(), itemsNamed("a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Results, 5)
}

func TestRunCancellationStopsSubmitting(t *testing.T) {
	stub := &stubInvoker{delay: 20 * time.Millisecond}
	r := New(stub, zerolog.Nop(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	summary, err := r.Run(ctx, itemsNamed("a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"), nil)

	require.Error(t, err)
	assert.Less(t, summary.Succeeded, 5, "cancellation must stop the batch early")
}

func TestRunEmptyWorkList(t *testing.T) {
	r := New(&stubInvoker{}, zerolog.Nop(), 1, nil)

	summary, err := r.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}
