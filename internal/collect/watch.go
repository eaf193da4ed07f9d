package collect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/unitsync/internal/debug"
)

// DefaultDebounce is the quiet period before a changed repository is re-collected
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-collects the focal records of a repository when one of its test
// files changes. Bursts of events for the same repository are collapsed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	opts     Options
	repos    map[string]string // repo dir -> repo id
	filters  map[string]*FileFilter
	debounce time.Duration
	onResult func(RepoResult)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]bool // repo dirs whose quiet period has ended
	wake    chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher prepares a watcher over the given repositories. Results of each
// re-collection are passed to onResult, which may be nil.
func NewWatcher(repoIDs []string, opts Options, debounce time.Duration, onResult func(RepoResult)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	opts.Force = true
	w := &Watcher{
		watcher:  fw,
		opts:     opts,
		repos:    make(map[string]string, len(repoIDs)),
		filters:  make(map[string]*FileFilter, len(repoIDs)),
		debounce: debounce,
		onResult: onResult,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]bool),
		wake:     make(chan struct{}, 1),
	}
	for _, id := range repoIDs {
		dir, err := filepath.Abs(filepath.Join(opts.RepoRoot, WrapRepo(id)))
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.repos[dir] = id
		w.filters[dir] = RepoFilter(dir, opts.Include, opts.Exclude)
	}
	return w, nil
}

// Start adds the watches and begins processing events until ctx is done or
// Stop is called
func (w *Watcher) Start(ctx context.Context) error {
	for dir := range w.repos {
		if err := w.addWatches(dir, dir); err != nil {
			return fmt.Errorf("failed to add watches starting from %s: %w", dir, err)
		}
	}
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.recollect(ctx)
	debug.Log(debug.Collect, "watching %d repositories\n", len(w.repos))
	return nil
}

// Stop halts the watcher and waits for an in-flight re-collection to finish
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	for dir, t := range w.timers {
		t.Stop()
		delete(w.timers, dir)
	}
	w.mu.Unlock()
	return err
}

// addWatches watches every non-excluded directory under start, which lies in
// the repository at repoDir
func (w *Watcher) addWatches(repoDir, start string) error {
	filter := w.filters[repoDir]
	visited := make(map[string]bool)
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == start {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return filepath.SkipDir
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if rel, err := filepath.Rel(repoDir, path); err == nil && rel != "." && filter.Excluded(filepath.ToSlash(rel), true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			debug.Log(debug.Collect, "failed to watch %s: %v\n", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
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
			debug.Log(debug.Collect, "watch error: %v\n", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	dir, rel, ok := w.repoOf(event.Name)
	if !ok {
		return
	}

	info, err := os.Stat(event.Name)
	if err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.filters[dir].Excluded(rel, true) {
			if err := w.addWatches(dir, event.Name); err != nil {
				debug.Log(debug.Collect, "failed to watch new directory %s: %v\n", event.Name, err)
			}
		}
		return
	}
	if !w.isTestPath(dir, rel) {
		return
	}
	debug.Log(debug.Collect, "watch: %v %s\n", event.Op, event.Name)
	w.schedule(dir)
}

// repoOf maps an event path to its repository directory and slash-separated
// relative path
func (w *Watcher) repoOf(path string) (string, string, bool) {
	for dir := range w.repos {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return dir, filepath.ToSlash(rel), true
	}
	return "", "", false
}

func (w *Watcher) repoDirOf(repoID string) string {
	for dir, id := range w.repos {
		if id == repoID {
			return dir
		}
	}
	return ""
}

// isTestPath is a cheap name check; contents are only inspected on re-collection
func (w *Watcher) isTestPath(dir, rel string) bool {
	if !hasAnySuffix(rel, w.opts.Language.Extensions()) {
		return false
	}
	return w.filters[dir].Included(rel)
}

// schedule restarts the quiet period for dir
func (w *Watcher) schedule(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[dir]; ok {
		t.Stop()
	}
	w.timers[dir] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, dir)
		w.mu.Unlock()
		w.enqueue(dir)
	})
}

// enqueue marks dir for re-collection and wakes the worker. A dir already
// pending is collected once.
func (w *Watcher) enqueue(dir string) {
	w.mu.Lock()
	w.pending[dir] = true
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// drain takes every pending dir, in a stable order
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.pending))
	for dir := range w.pending {
		dirs = append(dirs, dir)
	}
	clear(w.pending)
	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) recollect(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			for _, dir := range w.drain() {
				if ctx.Err() != nil {
					return
				}
				result := CollectRepo(ctx, w.repos[dir], w.opts)
				if w.onResult != nil {
					w.onResult(result)
				}
			}
		}
	}
}
