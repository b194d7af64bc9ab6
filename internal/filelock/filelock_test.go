package filelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "dest.lock")

	lock := NewFileLock(lockPath)
	require.NotNil(t, lock)
	assert.Equal(t, lockPath, lock.Path())
}

func TestTryLockExcludesSecondHolder(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "dest.lock")
	first := NewFileLock(lockPath)
	second := NewFileLock(lockPath)

	require.NoError(t, first.TryLock())

	err := second.TryLock()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked), "expected ErrLocked, got %v", err)

	require.NoError(t, first.Unlock())
	require.NoError(t, second.TryLock())
	require.NoError(t, second.Unlock())
}

func TestAcquireWaitsForRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "dest.lock")
	holder := NewFileLock(lockPath)
	require.NoError(t, holder.TryLock())

	go func() {
		time.Sleep(100 * time.Millisecond)
		holder.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiter := NewFileLock(lockPath)
	require.NoError(t, waiter.Acquire(ctx))
	require.NoError(t, waiter.Unlock())
}

func TestAcquireTimesOut(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "dest.lock")
	holder := NewFileLock(lockPath)
	require.NoError(t, holder.TryLock())
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := NewFileLock(lockPath).Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	require.NoError(t, AtomicWrite(path, []byte(`{"count":1}`)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"count":1}`, string(data))

	require.NoError(t, AtomicWrite(path, []byte(`{"count":2}`)))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"count":2}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AtomicWrite(filepath.Join(dir, "report.json"), []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.json", entries[0].Name())
}
