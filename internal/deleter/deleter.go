// Package deleter is the filesystem deletion engine behind destclean.
//
// It takes the ordered pattern list produced by the cleaner: plain globs
// select candidates and "!" globs protect paths. A path is removed when it
// matches at least one candidate glob and no protecting glob. Globs use "/"
// as separator; "*" stays within one segment and "**" crosses segments.
package deleter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/harrison/destclean/internal/cleaner"
)

const globMeta = "*?[{\\"

// FS deletes matching entries from the local filesystem.
type FS struct {
	// Base anchors relative patterns; empty means the working directory.
	Base string
}

// New returns a deleter anchored at the working directory.
func New() *FS {
	return &FS{}
}

// compiledPattern keeps the source text next to its matcher. Keep patterns
// are often literal file names, so the text itself also matches.
type compiledPattern struct {
	source string
	glob   glob.Glob
}

func (cp compiledPattern) match(p string) bool {
	if cp.source == p {
		return true
	}
	return cp.glob != nil && cp.glob.Match(p)
}

// Delete removes every selected path and returns the removed paths sorted,
// in the same slash-separated form as the patterns. Under DryRun nothing is
// touched and the would-be removals are returned.
//
// A selected directory is removed as a whole, so entries below it are not
// listed separately.
func (d *FS) Delete(ctx context.Context, patterns []string, opts cleaner.DeleteOptions) ([]string, error) {
	include, exclude, err := compile(patterns)
	if err != nil {
		return nil, err
	}

	var selected []string
	for _, root := range walkRoots(include) {
		found, err := d.collect(ctx, root, include, exclude)
		if err != nil {
			return nil, err
		}
		selected = append(selected, found...)
	}

	sort.Strings(selected)
	if opts.DryRun {
		return selected, nil
	}

	removal := append([]string(nil), selected...)
	sort.SliceStable(removal, func(i, j int) bool {
		return depth(removal[i]) > depth(removal[j])
	})
	for _, p := range removal {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := os.RemoveAll(d.resolve(p)); err != nil {
			return nil, fmt.Errorf("remove %s: %w", p, err)
		}
	}

	return selected, nil
}

// compile splits patterns into candidate and protecting globs.
func compile(patterns []string) (include, exclude []compiledPattern, err error) {
	for _, p := range patterns {
		negated := cleaner.IsKeep(p)
		src := strings.TrimPrefix(p, cleaner.KeepMarker)
		g, err := glob.Compile(src, '/')
		if err != nil {
			// A kept file named "a{b.js" is not valid glob syntax but
			// still protects itself literally.
			if !negated {
				return nil, nil, fmt.Errorf("failed to compile pattern %q: %w", p, err)
			}
			g = nil
		}
		cp := compiledPattern{source: src, glob: g}
		if negated {
			exclude = append(exclude, cp)
		} else {
			include = append(include, cp)
		}
	}
	return include, exclude, nil
}

// collect walks root and returns the paths selected for removal.
func (d *FS) collect(ctx context.Context, root string, include, exclude []compiledPattern) ([]string, error) {
	fsRoot := d.resolve(root)

	var selected []string
	err := filepath.WalkDir(fsRoot, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == fsRoot && errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(fsRoot, p)
		if err != nil {
			return err
		}
		key := path.Join(root, filepath.ToSlash(rel))

		if !matchesAny(include, key) || matchesAny(exclude, key) {
			return nil
		}

		selected = append(selected, key)
		if entry.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return selected, nil
}

func (d *FS) resolve(p string) string {
	native := filepath.FromSlash(p)
	if d.Base == "" || filepath.IsAbs(native) {
		return native
	}
	return filepath.Join(d.Base, native)
}

func matchesAny(patterns []compiledPattern, p string) bool {
	for _, cp := range patterns {
		if cp.match(p) {
			return true
		}
	}
	return false
}

// walkRoots returns the literal directory prefixes of the candidate globs,
// dropping any root nested inside another.
func walkRoots(include []compiledPattern) []string {
	roots := make([]string, 0, len(include))
	for _, cp := range include {
		roots = append(roots, literalPrefix(cp.source))
	}
	sort.Strings(roots)

	var out []string
	for _, r := range roots {
		if len(out) > 0 && within(r, out[len(out)-1]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// literalPrefix returns the leading segments of pattern that hold no glob syntax.
func literalPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	n := 0
	for n < len(segments) && !strings.ContainsAny(segments[n], globMeta) {
		n++
	}
	if n == len(segments) {
		// A literal pattern names one entry; walk from it.
		return path.Clean(pattern)
	}

	prefix := strings.Join(segments[:n], "/")
	switch {
	case prefix == "" && strings.HasPrefix(pattern, "/"):
		return "/"
	case prefix == "":
		return "."
	}
	return path.Clean(prefix)
}

// within reports whether p equals root or lies below it.
func within(p, root string) bool {
	if p == root || root == "." && !strings.HasPrefix(p, "/") {
		return true
	}
	if root == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}

func depth(p string) int {
	return strings.Count(p, "/")
}
