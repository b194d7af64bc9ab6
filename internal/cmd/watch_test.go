package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRejectsStdin(t *testing.T) {
	_, err := execute(t, nil, "watch", "--config", missingConfig(t), "-d", "lib", "--stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--stdin")
}

func TestWatchCleansAgainAfterChange(t *testing.T) {
	src, lib := newProject(t)

	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"watch",
		"--config", missingConfig(t),
		"-s", src,
		"-d", lib,
		"--ext", ".js",
		"--debounce", "50ms",
		"--no-lock",
		"--no-history",
		"--quiet",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return !pathExists(t, lib, "stale.js")
	}, 5*time.Second, 20*time.Millisecond, "initial clean")

	// Outputs left behind after the first run go on the next source change.
	writeTree(t, lib, "late.js")
	writeTree(t, src, "touch.coffee")

	require.Eventually(t, func() bool {
		return !pathExists(t, lib, "late.js")
	}, 5*time.Second, 20*time.Millisecond, "clean after change")
	assert.True(t, pathExists(t, lib, "foo.js"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
