package workspace

import (
	"go.uber.org/zap"
)

// Workspace indexes a directory and answers which files a request is
// likely about. It satisfies the agent's ContextSource contract.
type Workspace struct {
	root     string
	language string
	index    *fileIndex
	watch    *watcher
	log      *zap.Logger
}

// Open scans root, builds the in-memory index and starts watching for
// changes. Call Close when the session ends.
func Open(root string, log *zap.Logger) (*Workspace, error) {
	matcher := newIgnoreMatcher(root)
	files := listFiles(root, matcher)

	index, err := newFileIndex(root, files)
	if err != nil {
		return nil, err
	}

	watch, err := newWatcher(root, matcher, index, log)
	if err != nil {
		index.close()
		return nil, err
	}

	log.Debug("workspace indexed",
		zap.String("root", root),
		zap.Int("files", len(files)))

	return &Workspace{
		root:     root,
		language: DetectLanguage(root),
		index:    index,
		watch:    watch,
		log:      log,
	}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// Language returns the workspace's dominant language, or "".
func (w *Workspace) Language() string { return w.language }

// Shortlist returns up to n files relevant to the instruction: search
// hits over the index plus anything changed recently that the search
// missed.
func (w *Workspace) Shortlist(instruction string, n int) []string {
	if n <= 0 {
		return nil
	}

	hits, err := w.index.search(instruction, n)
	if err != nil {
		w.log.Debug("shortlist search failed", zap.Error(err))
	}

	seen := make(map[string]bool, len(hits))
	for _, p := range hits {
		seen[p] = true
	}
	for _, p := range w.watch.recentFiles() {
		if len(hits) >= n {
			break
		}
		if !seen[p] {
			hits = append(hits, p)
			seen[p] = true
		}
	}
	return hits
}

// Close stops the watcher and releases the index.
func (w *Workspace) Close() error {
	werr := w.watch.stop()
	ierr := w.index.close()
	if werr != nil {
		return werr
	}
	return ierr
}
