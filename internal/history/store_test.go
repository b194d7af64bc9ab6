package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStoreCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
}

func TestRecordAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &Run{
		RunID:        "run-1",
		Destination:  "lib",
		Source:       "src",
		Success:      true,
		Files:        3,
		PatternCount: 5,
		Deleted:      []string{"lib/old.js"},
		Duration:     1500 * time.Millisecond,
		StartedAt:    started,
	}
	require.NoError(t, store.RecordRun(ctx, first))
	assert.NotZero(t, first.ID)

	second := &Run{RunID: "run-2", Destination: "dist", DryRun: true, Success: true, StartedAt: started.Add(time.Minute)}
	require.NoError(t, store.RecordRun(ctx, second))

	runs, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].RunID)
	assert.True(t, runs[0].DryRun)
	assert.Empty(t, runs[0].Deleted)

	got := runs[1]
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "lib", got.Destination)
	assert.Equal(t, "src", got.Source)
	assert.Equal(t, 3, got.Files)
	assert.Equal(t, 5, got.PatternCount)
	assert.Equal(t, []string{"lib/old.js"}, got.Deleted)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, got.StartedAt.Equal(started))
}

func TestListRunsFiltersAndLimits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, r := range []struct{ id, dest string }{
		{"a", "lib"}, {"b", "dist"}, {"c", "lib"}, {"d", "lib"},
	} {
		require.NoError(t, store.RecordRun(ctx, &Run{RunID: r.id, Destination: r.dest, Success: true}))
	}

	runs, err := store.ListRuns(ctx, "lib", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "d", runs[0].RunID)
	assert.Equal(t, "c", runs[1].RunID)

	runs, err = store.ListRuns(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordRunRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.RecordRun(ctx, nil))
	assert.Error(t, store.RecordRun(ctx, &Run{Destination: "lib"}))

	require.NoError(t, store.RecordRun(ctx, &Run{RunID: "dup", Destination: "lib"}))
	assert.Error(t, store.RecordRun(ctx, &Run{RunID: "dup", Destination: "lib"}), "run ids are unique")
}

func TestFromReport(t *testing.T) {
	report := &cleaner.Report{
		RunID:       "abc",
		Destination: "lib",
		DryRun:      true,
		Patterns:    []string{"lib/**", "!lib"},
		Deleted:     []string{"lib/x.js"},
		Files:       4,
		Duration:    time.Second,
	}

	run := FromReport(report, "src", nil)
	assert.Equal(t, "abc", run.RunID)
	assert.Equal(t, "src", run.Source)
	assert.True(t, run.Success)
	assert.Equal(t, 2, run.PatternCount)
	assert.Equal(t, 4, run.Files)
	assert.Empty(t, run.ErrorMessage)

	failed := FromReport(report, "src", errors.New("boom"))
	assert.False(t, failed.Success)
	assert.Equal(t, "boom", failed.ErrorMessage)
}
