package gen

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
)

// ManualWatcher watches an on-disk manual file and hot-loads it into the
// generator on change, so admins can update the lab manual without a
// restart.
type ManualWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	gen         *Generator
	path        string
	debounceDur time.Duration
	lastLoad    time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewManualWatcher creates a watcher for the manual file at path. The file
// does not have to exist yet; it is loaded on first write.
func NewManualWatcher(path string, g *Generator) (*ManualWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ManualWatcher{
		watcher:     watcher,
		gen:         g,
		path:        path,
		debounceDur: 500 * time.Millisecond, // coalesce rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start loads the manual if present and begins watching. Non-blocking.
func (w *ManualWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.load(); err != nil && !os.IsNotExist(err) {
		logging.GenError("initial manual load failed: %v", err)
	}
	if err := w.watcher.Add(w.path); err != nil {
		// Watch the file once it appears; until then the embedded manual
		// stays in effect.
		logging.Gen("manual file %s not watchable yet: %v", w.path, err)
	}

	go w.loop(ctx)
	return nil
}

func (w *ManualWatcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			tooSoon := time.Since(w.lastLoad) < w.debounceDur
			if !tooSoon {
				w.lastLoad = time.Now()
			}
			w.mu.Unlock()
			if tooSoon {
				continue
			}
			if err := w.load(); err != nil {
				logging.GenError("manual reload failed: %v", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.GenError("manual watcher error: %v", err)
		}
	}
}

func (w *ManualWatcher) load() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	w.gen.SetManual(string(data))
	return nil
}

// Stop ends the watch loop and releases the watcher.
func (w *ManualWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}
