// Package watcher signals when a source tree changes so a cleaning run can be
// repeated. Bursts of events are coalesced into a single signal.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive delay
const DefaultDebounce = 250 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a change is signalled
	Debounce time.Duration
	// SkipNames lists directory names skipped anywhere in the tree
	SkipNames []string
	// SkipPaths lists directories, relative to the root, that are skipped
	SkipPaths []string
}

// Watcher watches a directory tree
type Watcher struct {
	watcher   *fsnotify.Watcher
	changes   chan struct{}
	errors    chan error
	done      chan struct{}
	root      string
	skipNames map[string]bool
	skipPaths []string

	mu       sync.Mutex
	debounce time.Duration
	timer    *time.Timer
	closed   bool
}

// New watches root and every directory below it, except the directories
// opts tells it to skip.
func New(root string, opts Options) (*Watcher, error) {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:   fsw,
		changes:   make(chan struct{}, 1),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
		root:      filepath.Clean(root),
		skipNames: make(map[string]bool, len(opts.SkipNames)),
		debounce:  debounce,
	}
	for _, name := range opts.SkipNames {
		w.skipNames[name] = true
	}
	for _, rel := range opts.SkipPaths {
		w.skipPaths = append(w.skipPaths, filepath.Join(w.root, filepath.FromSlash(rel)))
	}

	if err := w.addRecursive(w.root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.processEvents()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path != w.root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.skipped(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.sendError(err)
			}
		}
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	w.schedule()
}

// skipped reports whether path is, or lies below, a skipped directory.
func (w *Watcher) skipped(path string) bool {
	if w.skipNames[filepath.Base(path)] {
		return true
	}
	for _, p := range w.skipPaths {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer; the signal fires once events stop
// arriving for the debounce delay.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.signal)
}

func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	case <-w.done:
	default:
		// A signal is already pending.
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Changes delivers one value per settled burst of changes
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors returns the channel for receiving watch errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the directory being watched
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
