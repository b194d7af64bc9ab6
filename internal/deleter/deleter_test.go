package deleter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ cleaner.Deleter = (*FS)(nil)

// makeTree creates files (and their parents) below base.
func makeTree(t *testing.T, base string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(base, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
}

func exists(base, rel string) bool {
	_, err := os.Stat(filepath.Join(base, filepath.FromSlash(rel)))
	return err == nil
}

func TestDeleteRemovesStaleEntries(t *testing.T) {
	base := t.TempDir()
	makeTree(t, base,
		"lib/foo.js",
		"lib/stale.js",
		"lib/extra/bar.js",
		"lib/extra/old.js",
		"lib/gone/deep/x.js",
		"src/foo.js",
	)

	patterns := []string{
		"lib/**", "!lib",
		"!lib/foo.js",
		"!lib/extra",
		"!lib/extra/bar.js",
	}

	d := &FS{Base: base}
	deleted, err := d.Delete(context.Background(), patterns, cleaner.DeleteOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/extra/old.js", "lib/gone", "lib/stale.js"}, deleted)
	assert.True(t, exists(base, "lib/foo.js"))
	assert.True(t, exists(base, "lib/extra/bar.js"))
	assert.True(t, exists(base, "src/foo.js"))
	assert.False(t, exists(base, "lib/stale.js"))
	assert.False(t, exists(base, "lib/extra/old.js"))
	assert.False(t, exists(base, "lib/gone"))
	assert.True(t, exists(base, "lib"))
}

func TestDeleteDryRunTouchesNothing(t *testing.T) {
	base := t.TempDir()
	makeTree(t, base, "lib/keep.js", "lib/stale.js")

	d := &FS{Base: base}
	deleted, err := d.Delete(context.Background(),
		[]string{"lib/**", "!lib", "!lib/keep.js"},
		cleaner.DeleteOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/stale.js"}, deleted)
	assert.True(t, exists(base, "lib/stale.js"))
}

func TestDeleteProtectsGlobExcludes(t *testing.T) {
	base := t.TempDir()
	makeTree(t, base, "lib/extra/a/b.txt", "lib/extra/c.txt", "lib/other.txt")

	d := &FS{Base: base}
	deleted, err := d.Delete(context.Background(),
		[]string{"lib/**", "!lib", "!lib/extra/**", "!lib/extra"},
		cleaner.DeleteOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/other.txt"}, deleted)
	assert.True(t, exists(base, "lib/extra/a/b.txt"))
	assert.True(t, exists(base, "lib/extra/c.txt"))
}

func TestDeleteMissingDestination(t *testing.T) {
	d := &FS{Base: t.TempDir()}
	deleted, err := d.Delete(context.Background(), []string{"lib/**", "!lib"}, cleaner.DeleteOptions{})
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestDeleteAbsolutePatterns(t *testing.T) {
	base := t.TempDir()
	makeTree(t, base, "out/a.js", "out/b.js")
	dest := filepath.ToSlash(filepath.Join(base, "out"))

	deleted, err := New().Delete(context.Background(),
		[]string{dest + "/**", "!" + dest, "!" + dest + "/a.js"},
		cleaner.DeleteOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{dest + "/b.js"}, deleted)
	assert.True(t, exists(base, "out/a.js"))
}

func TestDeleteKeepsNamesWithGlobSyntax(t *testing.T) {
	names := []string{"a[1].js", "a{b.js", "b{x,y}.js", "c*.js", "d?.js"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			base := t.TempDir()
			makeTree(t, base, "lib/"+name, "lib/stale.js")

			cfg, err := cleaner.Normalize("lib", cleaner.Options{})
			require.NoError(t, err)
			stage := cleaner.NewStage(cfg, &FS{Base: base}, nil)
			stage.OnFile(cleaner.FileRecord{RelativePath: name})

			report, err := stage.Finalize(context.Background())
			require.NoError(t, err)

			assert.Equal(t, []string{"lib/stale.js"}, report.Deleted)
			assert.True(t, exists(base, "lib/"+name))
		})
	}
}

func TestDeleteKeepsDirectoryWithGlobSyntax(t *testing.T) {
	base := t.TempDir()
	makeTree(t, base, "lib/v[1]/a.js", "lib/old/a.js")

	deleted, err := (&FS{Base: base}).Delete(context.Background(),
		[]string{"lib/**", "!lib", "!lib/v[1]", "!lib/v[1]/a.js"},
		cleaner.DeleteOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/old"}, deleted)
	assert.True(t, exists(base, "lib/v[1]/a.js"))
}

func TestDeleteInvalidPattern(t *testing.T) {
	_, err := New().Delete(context.Background(), []string{"lib/[**"}, cleaner.DeleteOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile pattern")
}

func TestDeleteHonoursCancellation(t *testing.T) {
	base := t.TempDir()
	makeTree(t, base, "lib/a.js")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&FS{Base: base}).Delete(ctx, []string{"lib/**", "!lib"}, cleaner.DeleteOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, exists(base, "lib/a.js"))
}

func TestLiteralPrefix(t *testing.T) {
	tests := map[string]string{
		"lib/**":         "lib",
		"lib/a/*.js":     "lib/a",
		"/srv/www/**":    "/srv/www",
		"**":             ".",
		"/**":            "/",
		"lib/foo.js":     "lib/foo.js",
		"lib/{a,b}/*.js": "lib",
	}
	for in, want := range tests {
		assert.Equal(t, want, literalPrefix(in), in)
	}
}

func TestWalkRootsDropsNestedRoots(t *testing.T) {
	include, _, err := compile([]string{"lib/**", "lib/sub/**", "dist/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dist", "lib"}, walkRoots(include))
}
