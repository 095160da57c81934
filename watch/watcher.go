// Package watch follows a profile's servers.dat so servers saved in game
// show up in the hot list without reselecting the profile.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long a file must stay quiet before the callback runs.
const DefaultDelay = 500 * time.Millisecond

// ServerListWatcher watches one file at a time.  The game rewrites
// servers.dat in place or via rename, so the parent directory is watched and
// events are filtered on the file name.
type ServerListWatcher struct {
	fs    *fsnotify.Watcher
	deb   *Debouncer
	log   *zap.SugaredLogger
	delay time.Duration

	mu       sync.Mutex
	path     string
	dir      string
	onChange func()

	done chan struct{}
	once sync.Once
}

// New starts a watcher.  Close releases it.
func New(log *zap.SugaredLogger, delay time.Duration) (*ServerListWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	w := &ServerListWatcher{
		fs:    fsw,
		deb:   NewDebouncer(),
		log:   log,
		delay: delay,
		done:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch switches to path.  onChange runs once the file has been written or
// replaced and then left alone for the debounce delay.
func (w *ServerListWatcher) Watch(path string, onChange func()) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir != "" && w.dir != dir {
		if err := w.fs.Remove(w.dir); err != nil {
			w.log.Debugw("failed to stop watching directory", "dir", w.dir, "err", err)
		}
	}
	if w.dir != dir {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	if w.path != "" {
		w.deb.Stop(w.path)
	}
	w.path, w.dir, w.onChange = path, dir, onChange
	w.log.Infow("watching server list", "path", path)
	return nil
}

// Path is the file currently watched.
func (w *ServerListWatcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

func (w *ServerListWatcher) loop() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handle(filepath.Clean(ev.Name))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warnw("file watcher error", "err", err)
		case <-w.done:
			return
		}
	}
}

func (w *ServerListWatcher) handle(name string) {
	w.mu.Lock()
	path, fn := w.path, w.onChange
	w.mu.Unlock()
	if name != path || fn == nil {
		return
	}
	w.deb.Add(path, w.delay, func() {
		w.mu.Lock()
		current := w.path
		w.mu.Unlock()
		if current != path {
			return
		}
		w.log.Debugw("server list changed", "path", path)
		fn()
	})
}

// Close stops watching and drops pending callbacks.
func (w *ServerListWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.deb.StopAll()
		err = w.fs.Close()
	})
	return err
}
