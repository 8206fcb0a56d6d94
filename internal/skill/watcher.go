package skill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before reloading.
const DefaultDebounce = 250 * time.Millisecond

// Registrar is the part of the capability registry the watcher updates.
type Registrar interface {
	Register(c ports.Capability)
	Unregister(name string) bool
}

// Watcher keeps a registry in sync with a skills directory. File events are
// produced into a bounded channel; a single consumer reloads the directory.
type Watcher struct {
	dir      string
	registry Registrar
	opts     []Option
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	known map[string]bool
}

// NewWatcher creates a watcher for dir. opts are passed to Load.
func NewWatcher(dir string, registry Registrar, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		registry: registry,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		logger:   logger,
		debounce: DefaultDebounce,
		known:    make(map[string]bool),
	}
}

// Sync loads the directory, registers every skill found and unregisters the
// ones that disappeared since the previous sync. It returns the number of
// skills registered.
func (w *Watcher) Sync() (int, error) {
	skills, err := Load(w.dir, w.opts...)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		w.registry.Register(s)
		seen[s.Name()] = true
	}
	for name := range w.known {
		if !seen[name] {
			w.registry.Unregister(name)
			w.logger.Info("skill removed", slog.String("skill", name))
		}
	}
	w.known = seen
	return len(skills), nil
}

// Watch starts watching the directory and returns once the watch is set up.
// Reloads run until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create skills dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addTree(watcher); err != nil {
		watcher.Close()
		return err
	}

	w.logger.Info("watching skills directory", slog.String("path", w.dir))

	changes := make(chan struct{}, 1)
	go w.produce(ctx, watcher, changes)
	go w.consume(ctx, changes)
	return nil
}

// produce forwards file events into changes. The channel holds at most one
// pending signal, so a burst of events collapses into a single reload.
func (w *Watcher) produce(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer watcher.Close()
	defer close(changes)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("skills watch stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						w.logger.Warn("failed to watch skill dir",
							slog.String("path", event.Name),
							slog.String("error", err.Error()))
					}
				}
			}
			select {
			case changes <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("skills watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) consume(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
		}

		timer := time.NewTimer(w.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		n, err := w.Sync()
		if err != nil {
			w.logger.Error("failed to reload skills", slog.String("error", err.Error()))
			continue
		}
		w.logger.Info("skills reloaded", slog.Int("count", n))
	}
}

func (w *Watcher) addTree(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read skills dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := watcher.Add(filepath.Join(w.dir, e.Name())); err != nil {
			return fmt.Errorf("watch %s: %w", e.Name(), err)
		}
	}
	return nil
}
