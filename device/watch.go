package device

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/dustwatch/dustwatch/logging"
)

// Event reports a device node matching the watched patterns appearing or disappearing.
type Event struct {
	Path  string
	Added bool
}

// Watcher reports hotplug events of device nodes in one directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	patterns []string
	events   chan Event
	logger   logging.Logger

	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewWatcher starts watching dir for nodes matching patterns.
func NewWatcher(dir string, patterns []string, logger logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create device watcher")
	}
	if err := fsw.Add(dir); err != nil {
		goutils.UncheckedError(fsw.Close())
		return nil, errors.Wrapf(err, "cannot watch %s", dir)
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:    fsw,
		patterns:   patterns,
		events:     make(chan Event, 16),
		logger:     logger,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}
	w.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer w.activeBackgroundWorkers.Done()
		w.loop()
	})
	return w, nil
}

// Events is closed once the watcher is closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) loop() {
	defer close(w.events)
	for {
		select {
		case <-w.cancelCtx.Done():
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("device watcher error", "error", err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !MatchAny(w.patterns, ev.Name) {
				continue
			}
			var out Event
			switch {
			case ev.Has(fsnotify.Create):
				out = Event{Path: ev.Name, Added: true}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				out = Event{Path: ev.Name}
			default:
				continue
			}
			w.logger.Debugw("device event", "path", out.Path, "added", out.Added)
			select {
			case w.events <- out:
			case <-w.cancelCtx.Done():
				return
			}
		}
	}
}

// Close stops the watcher and waits for its worker to exit.
func (w *Watcher) Close() error {
	w.cancelFunc()
	err := w.watcher.Close()
	w.activeBackgroundWorkers.Wait()
	return err
}
