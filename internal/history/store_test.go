package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/ocrbatch/internal/discover"
	"github.com/spherical/ocrbatch/internal/runner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:        id,
		Profile:   "default",
		InputDir:  "/scans",
		StartedAt: started,
		Elapsed:   90 * time.Second,
		Total:     3,
		Succeeded: 2,
		Failed:    1,
	}
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := sampleRun(uuid.NewString(), time.Now().Add(-time.Hour))
	second := sampleRun(uuid.NewString(), time.Now())

	require.NoError(t, store.RecordRun(ctx, first, nil))
	require.NoError(t, store.RecordRun(ctx, second, nil))

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, "default", runs[0].Profile)
	assert.Equal(t, 90*time.Second, runs[0].Elapsed)
	assert.Equal(t, 2, runs[0].Succeeded)
}

func TestRecentRunsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := sampleRun(uuid.NewString(), time.Now().Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.RecordRun(ctx, run, nil))
	}

	runs, err := store.RecentRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestFileResultsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(uuid.NewString(), time.Now())
	results := []runner.FileResult{
		{
			Item:     discover.WorkItem{Path: "/scans/a.pdf"},
			Status:   runner.StatusSucceeded,
			Duration: 2 * time.Second,
			Output:   "ok, not stored for successes",
		},
		{
			Item: discover.WorkItem{
				Path:        "/scans/b.pdf",
				OutputPath:  "/scans/b_ocr.pdf",
				SidecarPath: "/scans/b.txt",
			},
			Status:   runner.StatusFailed,
			ExitCode: 2,
			Duration: time.Second,
			Output:   "ocrmypdf: encrypted file",
		},
		{
			Item:   discover.WorkItem{Path: "/scans/c.pdf"},
			Status: runner.StatusSkipped,
		},
	}

	require.NoError(t, store.RecordRun(ctx, run, results))

	got, err := store.FileResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byPath := map[string]runner.FileResult{}
	for _, res := range got {
		byPath[res.Item.Path] = res
	}

	assert.Equal(t, runner.StatusSucceeded, byPath["/scans/a.pdf"].Status)
	assert.Empty(t, byPath["/scans/a.pdf"].Output, "diagnostics recorded only for failures")

	failed := byPath["/scans/b.pdf"]
	assert.Equal(t, runner.StatusFailed, failed.Status)
	assert.Equal(t, 2, failed.ExitCode)
	assert.Contains(t, failed.Output, "encrypted")
	assert.Equal(t, "/scans/b_ocr.pdf", failed.Item.OutputPath)
	assert.Equal(t, "/scans/b.txt", failed.Item.SidecarPath)

	assert.Equal(t, runner.StatusSkipped, byPath["/scans/c.pdf"].Status)
}

func TestFileResultsUnknownRun(t *testing.T) {
	store := openTestStore(t)

	got, err := store.FileResults(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}
