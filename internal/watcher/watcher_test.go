package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

func waitForChange(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changes():
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func assertNoChange(t *testing.T, w *Watcher, wait time.Duration) {
	t.Helper()
	select {
	case <-w.Changes():
		t.Fatal("unexpected change signal")
	case <-time.After(wait):
	}
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{Debounce: testDebounce})
	assert.Error(t, err)
}

func TestWatcherSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{Debounce: testDebounce})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, filepath.Clean(dir), w.Root())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("x"), 0644))
	waitForChange(t, w)
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{Debounce: testDebounce})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte{byte(i)}, 0644))
	}
	waitForChange(t, w)
	assertNoChange(t, w, 4*testDebounce)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{Debounce: testDebounce})
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(dir, "extra")
	require.NoError(t, os.Mkdir(sub, 0755))
	waitForChange(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.js"), []byte("x"), 0644))
	waitForChange(t, w)
}

func TestWatcherSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	skipped := filepath.Join(dir, "node_modules")
	require.NoError(t, os.Mkdir(skipped, 0755))

	w, err := New(dir, Options{Debounce: testDebounce, SkipNames: []string{"node_modules"}})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(skipped, "dep.js"), []byte("x"), 0644))
	assertNoChange(t, w, 4*testDebounce)
}

func TestWatcherSkipsRelativePathOnly(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "build", "lib")
	other := filepath.Join(dir, "vendor", "lib")
	require.NoError(t, os.MkdirAll(dest, 0755))
	require.NoError(t, os.MkdirAll(other, 0755))

	w, err := New(dir, Options{Debounce: testDebounce, SkipPaths: []string{"build/lib"}})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.skipped(dest))
	assert.True(t, w.skipped(filepath.Join(dest, "a.js")))
	assert.False(t, w.skipped(other))
	assert.False(t, w.skipped(filepath.Join(dir, "build", "lib2")))

	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.js"), []byte("x"), 0644))
	assertNoChange(t, w, 4*testDebounce)

	require.NoError(t, os.WriteFile(filepath.Join(other, "b.js"), []byte("x"), 0644))
	waitForChange(t, w)
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
