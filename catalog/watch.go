package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a catalog file into a live Catalog when it changes.
type Watcher struct {
	target   *Catalog
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	errChan  chan error
	path     string
	onChange []func(*Catalog)
	debounce time.Duration
	mu       sync.Mutex
	done     chan struct{}
}

// NewWatcher prepares a watcher for path that updates target.
func NewWatcher(path string, target *Catalog) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		target:   target,
		path:     path,
		ctx:      ctx,
		cancel:   cancel,
		errChan:  make(chan error, 1),
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(cb func(*Catalog)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, cb)
}

// Errors returns a channel for reload and watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Start begins watching the directory containing the catalog file.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save; watching the directory survives that.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = fw
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	var timer *time.Timer
	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		w.report(fmt.Errorf("reload catalog: %w", err))
		return
	}
	w.target.Replace(next)

	w.mu.Lock()
	cbs := append([]func(*Catalog){}, w.onChange...)
	w.mu.Unlock()
	for _, cb := range cbs {
		cb(w.target)
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errChan <- err:
	default:
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}
