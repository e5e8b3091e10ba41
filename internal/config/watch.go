package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher records edits to the config file so the poll loop can tell the
// user a restart is needed. It never reloads the running configuration.
//
// The parent directory is watched rather than the file itself so the watch
// survives editors that save by writing a new file and renaming it over the
// old one (vim, VS Code).
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	log  zerolog.Logger
}

// NewWatcher starts watching path. Close must be called to release it.
func NewWatcher(path string, log zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	log.Debug().Str("path", abs).Msg("config: watching for changes")
	return &Watcher{path: abs, fsw: fsw, log: log}, nil
}

// Changed drains pending filesystem events without blocking and reports
// whether any of them touched the config file.
func (w *Watcher) Changed() bool {
	changed := false
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return changed
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				changed = true
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return changed
			}
			w.log.Error().Err(err).Msg("config: watcher error")
		default:
			return changed
		}
	}
}

// Check reports an edit to the config file, if any, through the log: a
// valid file needs a restart to apply, an invalid one is named with the
// error so it can be fixed before that restart.
func (w *Watcher) Check() {
	if !w.Changed() {
		return
	}
	if _, err := Load(w.path); err != nil {
		w.log.Error().Err(err).Str("path", w.path).
			Msg("config: file changed on disk but does not load; toasts keeps running with the previous config")
		return
	}
	w.log.Warn().Str("path", w.path).Msg("config: file changed on disk; restart toasts to apply")
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
