package reload

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// Watcher keeps track of files and detects modifications, creations and
// removals between snapshots.
type Watcher struct {
	mu    sync.Mutex
	files map[string]fileState
}

// NewWatcher builds a watcher that snapshots the provided paths.
func NewWatcher(paths ...string) (*Watcher, error) {
	watcher := &Watcher{}
	if err := watcher.Update(paths...); err != nil {
		return nil, err
	}
	return watcher, nil
}

// Update replaces the tracked file list and snapshots every path.
func (w *Watcher) Update(paths ...string) error {
	if w == nil {
		return nil
	}
	states := make(map[string]fileState, len(paths))
	for _, path := range uniquePaths(paths) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		states[abs] = stat(abs)
	}
	w.mu.Lock()
	w.files = states
	w.mu.Unlock()
	return nil
}

// Acknowledge refreshes the snapshot of already tracked paths, so changes the
// process made itself are not reported by the next Check.
func (w *Watcher) Acknowledge(paths ...string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, ok := w.files[abs]; ok {
			w.files[abs] = stat(abs)
		}
	}
}

// Check reports the files that changed since the last snapshot and
// snapshots them again.
func (w *Watcher) Check() ([]string, error) {
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0)
	for path, previous := range w.files {
		current := stat(path)
		if current.exists != previous.exists ||
			current.modTime.After(previous.modTime) ||
			current.size != previous.size {
			changed = append(changed, path)
			w.files[path] = current
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		result = append(result, path)
	}
	return result
}
