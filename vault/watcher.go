package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the vault tree and reports markdown changes after a
// debounce window, so a burst of editor writes triggers one rescan.
type Watcher struct {
	manager  *Manager
	logger   *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	events  chan ChangeEvent

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	timer   *time.Timer
	closed  bool
}

// ChangeEvent is a debounced batch of changed vault paths.
type ChangeEvent struct {
	// Paths are vault-relative paths of changed markdown documents.
	Paths []string
}

// NewWatcher creates a watcher over the manager's vault.
func NewWatcher(m *Manager, logger *slog.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		manager:  m,
		logger:   logger,
		debounce: debounce,
		watcher:  fw,
		events:   make(chan ChangeEvent, 16),
		pending:  make(map[string]fsnotify.Op),
	}

	if err := w.addDirs(); err != nil {
		fw.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel of debounced change batches.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Run processes filesystem events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories need watching before their files produce events
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.isWatchable(event.Name) {
				if err := w.watcher.Add(event.Name); err != nil {
					w.logger.Warn("watch new directory", "path", event.Name, "error", err)
				}
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	rel, err := filepath.Rel(w.manager.Root(), event.Name)
	if err != nil {
		return
	}
	// Ignore our own bookkeeping writes
	if rel == DecisionLogFile || strings.HasPrefix(rel, StateDir+string(filepath.Separator)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[rel] |= event.Op
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// shutdown stops the debounce timer before closing the events channel,
// so a flush pending at cancellation cannot send on a closed channel.
func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = nil
	w.mu.Unlock()

	close(w.events)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || len(w.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(w.pending))
	for rel := range w.pending {
		paths = append(paths, rel)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.timer = nil

	// Non-blocking send under the mutex: shutdown cannot close the
	// channel while we hold it.
	select {
	case w.events <- ChangeEvent{Paths: paths}:
	default:
		w.logger.Warn("change event dropped, consumer too slow", "paths", len(paths))
	}
}

func (w *Watcher) addDirs() error {
	root := w.manager.Root()
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if !w.isWatchable(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) isWatchable(path string) bool {
	rel, err := filepath.Rel(w.manager.Root(), path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	top := strings.Split(rel, string(filepath.Separator))[0]
	return top != StateDir && top != ExportsDir && !strings.HasPrefix(top, ".")
}
