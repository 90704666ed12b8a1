package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/history"
)

// DefaultDebounce is used when NewWatcher is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-runs the batch when one of the input files is written or
// created. Bursts of events are collapsed into one run after a quiet
// period. Output files and temporary files in the same directory are
// ignored.
type Watcher struct {
	fs       *fsnotify.Watcher
	runner   BatchRunner
	paths    core.Paths
	debounce time.Duration
	inputs   map[string]bool

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher watches the directories holding the input files.
func NewWatcher(runner BatchRunner, paths core.Paths, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		runner:   runner,
		paths:    paths,
		debounce: debounce,
		inputs:   make(map[string]bool),
	}

	dirs := make(map[string]bool)
	for _, in := range paths.Inputs() {
		abs, err := filepath.Abs(in)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("bad path %q: %w", in, err)
		}
		w.inputs[abs] = true

		// fsnotify watches directories; files may not exist yet.
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Start processes file events until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	slog.Info("watching input files", "inputs", w.paths.Inputs(), "debounce", w.debounce)
}

// Close stops watching, cancels a pending run and waits for a run that has
// already started.
func (w *Watcher) Close() error {
	err := w.fs.Close()

	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.inputs[abs] {
				continue
			}
			slog.Debug("input changed", "path", abs, "op", event.Op.String())
			w.schedule(ctx)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)
		}
	}
}

// schedule starts or restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire(ctx))
}

// fire returns the debounce callback. The run is registered with wg under
// mu so Close either prevents it or waits for it.
func (w *Watcher) fire(ctx context.Context) func() {
	return func() {
		w.mu.Lock()
		if w.closed || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		runBatch(ctx, w.runner, w.paths, history.SourceWatch)
	}
}
