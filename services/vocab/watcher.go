package vocabsvc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
)

const defaultDebounce = 300 * time.Millisecond

type (
	// Refresher reloads the vocabulary of the selected institution.
	Refresher interface {
		RefreshVocabulary(ctx context.Context) error
	}

	// Watcher refreshes the vocabulary whenever a course table in dir changes. Bursts of writes
	// are coalesced into one refresh.
	Watcher struct {
		mu       sync.Mutex
		watcher  *fsnotify.Watcher
		dir      string
		engine   Refresher
		log      core.Logger
		debounce time.Duration
		stopCh   chan struct{}
		doneCh   chan struct{}
		running  bool
	}
)

func NewWatcher(dir string, engine Refresher, log core.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating watcher")
	}
	if log == nil {
		log = core.Discard
	}
	return &Watcher{
		watcher:  fw,
		dir:      dir,
		engine:   engine,
		log:      log,
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches dir in the background. It is a no-op when already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrap(err, "creating vocabulary dir")
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return errors.Wrapf(err, "watching %s", w.dir)
	}
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends the watch and waits for the loop to exit. A stopped Watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Warn("closing vocabulary watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isCourseTable(ev) {
				continue
			}
			w.log.Debug("course table changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("vocabulary watcher", "error", err)
		case <-timer.C:
			if err := w.engine.RefreshVocabulary(ctx); err != nil {
				w.log.Warn("refreshing vocabulary", "error", err)
			}
		}
	}
}

func isCourseTable(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(ev.Name)
	ext := filepath.Ext(name)
	return (ext == ".json" || ext == ".xlsx") && strings.HasSuffix(strings.TrimSuffix(name, ext), fileSuffix)
}
