package persona

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Resolver when files in its catalog directory change.
// Bursts of events are debounced into a single reload.
type Watcher struct {
	resolver *Resolver
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration

	timer    *time.Timer
	timerMu  sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
	reloaded chan struct{}
}

// NewWatcher watches the directory of the resolver's catalog file
func NewWatcher(resolver *Resolver, debounce time.Duration) (*Watcher, error) {
	if resolver.catalogPath == "" {
		return nil, fmt.Errorf("persona resolver has no catalog file to watch")
	}
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		resolver: resolver,
		watcher:  fw,
		dir:      filepath.Dir(resolver.catalogPath),
		debounce: debounce,
		done:     make(chan struct{}),
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Start begins watching
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	go w.eventLoop()

	w.resolver.logger.Info().Str("dir", w.dir).Msg("Persona watcher started")
	return nil
}

// Stop stops watching and cancels any pending reload
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Reloaded is signalled after every successful reload
func (w *Watcher) Reloaded() <-chan struct{} {
	return w.reloaded
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.resolver.logger.Error().Err(err).Msg("Persona watcher error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}

	if err := w.resolver.Reload(); err != nil {
		w.resolver.logger.Error().Err(err).Msg("Persona catalog reload failed, keeping previous catalog")
		return
	}

	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}
