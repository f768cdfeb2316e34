package bridge

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// responseWatcher turns fsnotify events on the response file into wake-ups
// for the poll loop. Polling still decides when a response is complete.
type responseWatcher struct {
	w    *fsnotify.Watcher
	name string
	wake chan struct{}
	done chan struct{}
}

func newResponseWatcher(dir, name string) (*responseWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	rw := &responseWatcher{
		w:    w,
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go rw.loop()
	return rw, nil
}

func (rw *responseWatcher) loop() {
	defer close(rw.done)
	for {
		select {
		case event, ok := <-rw.w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != rw.name {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				rw.notify()
			}
		case _, ok := <-rw.w.Errors:
			if !ok {
				return
			}
		}
	}
}

func (rw *responseWatcher) notify() {
	select {
	case rw.wake <- struct{}{}:
	default:
	}
}

// drain drops a wake-up left over from a previous exchange.
func (rw *responseWatcher) drain() {
	select {
	case <-rw.wake:
	default:
	}
}

func (rw *responseWatcher) C() <-chan struct{} { return rw.wake }

func (rw *responseWatcher) Close() error {
	err := rw.w.Close()
	<-rw.done
	return err
}
