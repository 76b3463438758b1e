package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/customheadset/driver/utils"
)

// editors commonly write a file with several events in quick succession; coalesce them
const debounceInterval = 200 * time.Millisecond

// Watcher watches the config directory and emits a validated Settings snapshot whenever
// settings.json changes, or any profile file changes while watchDistortionProfiles is
// enabled. A reload that fails keeps the previous settings active and emits nothing.
type Watcher struct {
	dir       string
	logger    golog.Logger
	fsWatcher *fsnotify.Watcher
	updates   chan Settings
	workers   utils.StoppableWorkers

	mu   sync.Mutex
	last Settings
}

// NewWatcher starts watching the given config directory.
func NewWatcher(dir string, logger golog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating filesystem watcher")
	}
	if err := fsWatcher.Add(dir); err != nil {
		goutils.UncheckedErrorFunc(fsWatcher.Close)
		return nil, errors.Wrapf(err, "watching config directory %q", dir)
	}
	profileDir := filepath.Join(dir, ProfileDirName)
	if err := fsWatcher.Add(profileDir); err != nil {
		logger.Debugw("not watching profile directory", "dir", profileDir, "error", err)
	}

	last, err := ReadSettings(filepath.Join(dir, SettingsFileName), logger)
	if err != nil {
		logger.Debugw("starting from default settings", "error", err)
	}

	w := &Watcher{
		dir:       dir,
		logger:    logger,
		fsWatcher: fsWatcher,
		updates:   make(chan Settings, 1),
		last:      last,
	}
	w.workers = utils.NewStoppableWorkers(w.watch)
	return w, nil
}

// Updates returns the channel of settings snapshots. Only the newest snapshot is
// retained if the consumer falls behind.
func (w *Watcher) Updates() <-chan Settings {
	return w.updates
}

func (w *Watcher) watch(ctx context.Context) {
	debounced := debounce.New(debounceInterval)
	kick := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				debounced(func() {
					select {
					case kick <- struct{}{}:
					default:
					}
				})
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("filesystem watcher error", "error", err)
		case <-kick:
			w.reload()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	dir := filepath.Clean(filepath.Dir(ev.Name))
	base := filepath.Base(ev.Name)
	if base == SettingsFileName && dir == filepath.Clean(w.dir) {
		return true
	}
	if filepath.Ext(base) == ".json" && dir == filepath.Clean(filepath.Join(w.dir, ProfileDirName)) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.last.WatchDistortionProfiles
	}
	return false
}

func (w *Watcher) reload() {
	s, err := ReadSettings(filepath.Join(w.dir, SettingsFileName), w.logger)
	if err != nil {
		w.logger.Warnw("settings reload failed; keeping previous settings", "error", err)
		return
	}
	w.logger.Info("config changed, reloading")
	w.mu.Lock()
	w.last = s
	w.mu.Unlock()

	// drop a stale pending snapshot so the consumer always sees the newest
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- s:
	default:
	}
}

// Close stops the watcher's background worker and releases the filesystem watch. It is
// safe to call once the consumer is done with Updates.
func (w *Watcher) Close() {
	w.workers.Stop()
	goutils.UncheckedErrorFunc(w.fsWatcher.Close)
}
