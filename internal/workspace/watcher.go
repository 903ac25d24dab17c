package workspace

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
)

// ChangeKind tells written files from removed ones.
type ChangeKind int

const (
	ChangeWritten ChangeKind = iota
	ChangeRemoved
)

// Change is one debounced file event.
type Change struct {
	Path string
	Kind ChangeKind
}

// Watcher reports changes to Spin files below the workspace folders. Events
// are collected until no new one arrived for the debounce interval and then
// delivered as one batch.
type Watcher struct {
	fs       *fsnotify.Watcher
	walker   *Walker
	debounce time.Duration
	onChange func([]Change)

	roots []string
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewWatcher creates a watcher. onChange is called from the watcher goroutine.
func NewWatcher(walker *Walker, debounce time.Duration, onChange func([]Change)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if walker == nil {
		walker = NewWalker(nil)
	}

	return &Watcher{
		fs:       fsw,
		walker:   walker,
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start adds watches for every directory below roots and begins delivering
// events.
func (w *Watcher) Start(roots []string) error {
	w.roots = roots

	for _, root := range roots {
		w.addWatches(root, root)
	}

	w.wg.Add(1)

	go w.run()

	return nil
}

// Close stops the watcher and waits for its goroutine to exit. Pending events
// are dropped.
func (w *Watcher) Close() error {
	var err error

	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})

	return err
}

func (w *Watcher) addWatches(root, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}

		if path != dir && (skippedDir(d.Name()) || w.walker.Excluded(root, path)) {
			return filepath.SkipDir
		}

		if err := w.fs.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}

		return nil
	})
}

func (w *Watcher) rootOf(path string) string {
	for _, root := range w.roots {
		if isUnder(path, root) {
			return root
		}
	}

	return filepath.Dir(path)
}

func (w *Watcher) run() {
	defer w.wg.Done()

	pending := make(map[string]ChangeKind)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if w.handleEvent(event, pending) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			log.Printf("File watcher error: %v", err)

		case <-timer.C:
			w.flush(pending)
			pending = make(map[string]ChangeKind)
		}
	}
}

// handleEvent records a relevant event and reports whether one was recorded.
func (w *Watcher) handleEvent(event fsnotify.Event, pending map[string]ChangeKind) bool {
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			root := w.rootOf(path)
			if !skippedDir(info.Name()) && !w.walker.Excluded(root, path) {
				w.addWatches(root, path)
			}

			return false
		}
	}

	if !resolver.IsSpinFile(path) || w.walker.Excluded(w.rootOf(path), path) {
		return false
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		pending[path] = ChangeRemoved
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		pending[path] = ChangeWritten
	default:
		return false
	}

	return true
}

func (w *Watcher) flush(pending map[string]ChangeKind) {
	if len(pending) == 0 || w.onChange == nil {
		return
	}

	changes := make([]Change, 0, len(pending))
	for path, kind := range pending {
		changes = append(changes, Change{Path: path, Kind: kind})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})

	log.Printf("Processing %d debounced file events", len(changes))
	w.onChange(changes)
}
