// Package watch rebuilds whenever the config file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/kar/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period after the last change before a rebuild
// starts. Editors often emit several events for one save.
const DefaultDebounce = 100 * time.Millisecond

// BuildFunc performs one rebuild.
type BuildFunc func(ctx context.Context) error

// ResultFunc is told about every build, including the initial one.
type ResultFunc func(initial bool, err error)

// Watcher runs a BuildFunc once at start and again after every burst of
// changes to a single file.
type Watcher struct {
	path     string
	build    BuildFunc
	debounce time.Duration
	onResult ResultFunc
	log      *logrus.Entry
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithResultHandler registers a callback invoked after each build.
func WithResultHandler(fn ResultFunc) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// WithLogger sets the logger used for watch events.
func WithLogger(l *logrus.Entry) Option {
	return func(w *Watcher) { w.log = l }
}

// New creates a Watcher for the file at path.
func New(path string, build BuildFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w := &Watcher{
		path:     filepath.Clean(abs),
		build:    build,
		debounce: DefaultDebounce,
		log:      logger.NewLogger("watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run builds once, then rebuilds after changes until ctx is cancelled. The
// parent directory is watched rather than the file itself so that editors
// which save by replacing the file keep being noticed. Build failures are
// reported and the loop keeps going; only a failure to start watching is
// returned.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.runBuild(ctx, true)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.WithFields(logrus.Fields{"event": event.Op.String()}).Debug("Config changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("File watcher error")

		case <-fire:
			fire = nil
			w.runBuild(ctx, false)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) runBuild(ctx context.Context, initial bool) {
	if ctx.Err() != nil {
		return
	}
	err := w.build(ctx)
	if err != nil {
		w.log.WithError(err).Debug("Build failed")
	}
	if w.onResult != nil {
		w.onResult(initial, err)
	}
}
