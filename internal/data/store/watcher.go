package store

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-activity-report/internal/util"
)

// KeyEvent reports a change to one key of a FileBackend directory.
type KeyEvent struct {
	Key       string
	Operation string
}

// Watcher turns file system notifications on a store directory into key
// events. Temp files written during atomic updates are ignored; the final
// rename shows up as a create of the key file.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	events  chan KeyEvent
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		dir:     dir,
		events:  make(chan KeyEvent, 100),
		done:    make(chan struct{}),
	}

	go w.processEvents()

	return w, nil
}

func (w *Watcher) processEvents() {
	defer close(w.events)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			key, ok := KeyFromPath(event.Name)
			if !ok {
				continue
			}
			select {
			case w.events <- KeyEvent{Key: key, Operation: event.Op.String()}:
			case <-w.done:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue running
			util.LogError("Store watch error: " + err.Error())

		case <-w.done:
			return
		}
	}
}

// Events is closed once the watcher is closed.
func (w *Watcher) Events() <-chan KeyEvent {
	return w.events
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
