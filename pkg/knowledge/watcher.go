package knowledge

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DocWatcher watches the knowledge docs directory for changes
type DocWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onDirty  func()
	debounce time.Duration
	timer    *time.Timer
	stopCh   chan struct{}
}

// NewDocWatcher creates a new doc watcher
func NewDocWatcher(logger zerolog.Logger, onDirty func()) (*DocWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dw := &DocWatcher{
		watcher:  watcher,
		logger:   logger,
		onDirty:  onDirty,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	go dw.run()

	return dw, nil
}

// Watch starts watching a directory
func (dw *DocWatcher) Watch(path string) error {
	return dw.watcher.Add(path)
}

// Stop stops the doc watcher
func (dw *DocWatcher) Stop() error {
	close(dw.stopCh)
	return dw.watcher.Close()
}

// run processes file system events
func (dw *DocWatcher) run() {
	for {
		select {
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}

			// Only markdown docs trigger reindex
			if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				dw.logger.Debug().
					Str("doc", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Knowledge doc change detected")

				dw.scheduleMarkDirty()
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Error().Err(err).Msg("Doc watcher error")

		case <-dw.stopCh:
			return
		}
	}
}

// scheduleMarkDirty debounces the mark dirty operation
func (dw *DocWatcher) scheduleMarkDirty() {
	if dw.timer != nil {
		dw.timer.Stop()
	}

	dw.timer = time.AfterFunc(dw.debounce, func() {
		dw.logger.Debug().Msg("Marking knowledge index as dirty after doc changes")
		dw.onDirty()
	})
}
