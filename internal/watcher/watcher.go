// Package watcher reports changes to a single file, such as an operator
// editing the printer registry by hand.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	base     zerolog.Logger
	logger   zerolog.Logger
}

// New creates a new file watcher
func New(path string, onChange func(), logger zerolog.Logger) *Watcher {
	w := &Watcher{
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		base:     logger.With().Str("component", "watcher").Logger(),
	}
	w.setPath(path)
	return w
}

func (w *Watcher) setPath(path string) {
	w.path = path
	w.logger = w.base.With().Str("path", path).Logger()
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch calls onChange once a burst of writes to the file has been quiet
// for the debounce period. It blocks until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// The directory is watched so atomic replaces (rename over the file)
	// are still seen.
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)
	logger := w.logger
	if err := fsw.Add(dir); err != nil {
		return err
	}
	logger.Info().Msg("Watching for changes")

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				logger.Debug().Msg("File changed")
				w.onChange()
			})
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Follow runs Watch and restarts it on every path received from moves,
// for files that can be relocated while the process runs. A watch that
// fails to start is retried on the next move. It blocks until ctx is
// cancelled.
func (w *Watcher) Follow(ctx context.Context, moves <-chan string) error {
	for {
		watchCtx, cancel := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func() { errCh <- w.Watch(watchCtx) }()

		select {
		case path := <-moves:
			cancel()
			<-errCh
			w.logger.Info().Str("to", path).Msg("File moved, following")
			w.setPath(path)
			continue

		case err := <-errCh:
			cancel()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn().Err(err).Msg("Watch stopped, waiting for the file to move")
		}

		select {
		case path := <-moves:
			w.setPath(path)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
