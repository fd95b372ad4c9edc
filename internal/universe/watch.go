package universe

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultSettle is how long a dataset file must stay quiet before it is
// reloaded.
const DefaultSettle = 200 * time.Millisecond

// Watcher reloads a dataset file whenever it changes on disk. Editors and
// deploy tools often replace the file rather than write it in place, so the
// containing directory is watched.
type Watcher struct {
	path   string
	settle time.Duration
	log    zerolog.Logger
	onLoad func(*Dataset)
}

// NewWatcher creates a watcher for path. onLoad receives every successfully
// reloaded dataset, from the watcher goroutine.
func NewWatcher(path string, settle time.Duration, log zerolog.Logger, onLoad func(*Dataset)) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{path: filepath.Clean(path), settle: settle, log: log, onLoad: onLoad}
}

// Run watches until ctx is done. A file that fails to load is logged and the
// previous dataset stays in use.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer.Reset(w.settle)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Str("path", w.path).Msg("dataset watch error")
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	d, err := LoadFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("dataset reload failed, keeping previous")
		return
	}
	w.log.Info().Str("path", w.path).Int("systems", len(d.Entities)).Msg("dataset reloaded")
	w.onLoad(d)
}
