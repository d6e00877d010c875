package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

const (
	watchDebounce = 500 * time.Millisecond
	recencyWindow = 15 * time.Minute
)

// watcher tracks files changed while the session runs. Changed files
// are reindexed and remembered so the shortlist can favor what the
// user just touched.
type watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	matcher gitignore.IgnoreParser
	index   *fileIndex
	log     *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
	recent  map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newWatcher(root string, matcher gitignore.IgnoreParser, index *fileIndex, log *zap.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		root:    root,
		fsw:     fsw,
		matcher: matcher,
		index:   index,
		log:     log,
		pending: make(map[string]bool),
		recent:  make(map[string]time.Time),
		ctx:     ctx,
		cancel:  cancel,
	}

	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if rel != "." && matcher.MatchesPath(rel) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			log.Debug("cannot watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})

	w.wg.Add(2)
	go w.eventLoop()
	go w.flushLoop()
	return w, nil
}

func (w *watcher) stop() error {
	w.cancel()
	w.wg.Wait()
	return w.fsw.Close()
}

// recentFiles returns paths changed inside the recency window, newest
// first bias is not needed; callers only dedupe against search hits.
func (w *watcher) recentFiles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-recencyWindow)
	paths := make([]string, 0, len(w.recent))
	for path, at := range w.recent {
		if at.After(cutoff) {
			paths = append(paths, path)
		} else {
			delete(w.recent, path)
		}
	}
	return paths
}

func (w *watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || w.matcher.MatchesPath(rel) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
			return
		}
	}

	if LanguageOf(event.Name) == "" && !event.Has(fsnotify.Remove) {
		return
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.pending[rel] = true
		w.mu.Unlock()
	}
}

func (w *watcher) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	now := time.Now()
	for path := range w.pending {
		paths = append(paths, path)
		w.recent[path] = now
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, path := range paths {
		if err := w.index.update(path); err != nil {
			w.log.Debug("reindex failed", zap.String("path", path), zap.Error(err))
		}
	}
}
