// Package fileutil turns a build source tree, or a plain listing of it, into
// the ordered cleaner.FileRecord stream a cleaning stage consumes.
package fileutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/destclean/internal/cleaner"
)

// ScanOptions configures the source scan
type ScanOptions struct {
	// IncludeDirs emits a record for every directory as well as every file
	IncludeDirs bool
	// ExcludeDirs is a list of directory names to skip (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = top level only)
	MaxDepth int
}

// ScanRecords walks dir and returns one record per entry, relative to dir,
// slash separated and sorted.
func ScanRecords(dir string, opts ScanOptions) ([]cleaner.FileRecord, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	excludeMap := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	records := make([]cleaner.FileRecord, 0)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excludeMap[d.Name()] {
				return filepath.SkipDir
			}
			if opts.IncludeDirs {
				records = append(records, cleaner.FileRecord{RelativePath: rel, IsDir: true})
			}
			if opts.MaxDepth > 0 && strings.Count(rel, "/")+1 >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		records = append(records, cleaner.FileRecord{RelativePath: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].RelativePath < records[j].RelativePath
	})
	return records, nil
}

// ReadRecords parses one relative path per line. A trailing "/" marks a
// directory; blank lines and lines starting with "#" are skipped.
func ReadRecords(r io.Reader) ([]cleaner.FileRecord, error) {
	var records []cleaner.FileRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = filepath.ToSlash(line)
		line = strings.TrimPrefix(line, "./")

		rec := cleaner.FileRecord{RelativePath: line}
		if strings.HasSuffix(line, "/") {
			rec.IsDir = true
			rec.RelativePath = strings.TrimRight(line, "/")
		}
		if rec.RelativePath == "" {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// Stream sends records on a new channel and closes it when done or when
// stop is closed. Closing stop abandons the stream without closing it
// cleanly, which the cleaning stage treats as an aborted run.
func Stream(records []cleaner.FileRecord, stop <-chan struct{}) <-chan cleaner.FileRecord {
	ch := make(chan cleaner.FileRecord)
	go func() {
		for _, rec := range records {
			select {
			case ch <- rec:
			case <-stop:
				return
			}
		}
		close(ch)
	}()
	return ch
}
