package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const watchLogPrefix = "server:watch"

// watchConfig re-resolves the topology whenever the configuration document
// changes. The parent directory is watched so editors that replace the file
// by rename are seen too.
func (s *Server) watchConfig(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s - failed to create watcher: %w", watchLogPrefix, err)
	}
	path := filepath.Clean(s.cfg.ConfigFile)
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("%s - failed to watch %s: %w", watchLogPrefix, filepath.Dir(path), err)
	}
	s.watcher = w
	slog.Info(fmt.Sprintf("%s - Watching %s for changes", watchLogPrefix, path))

	go s.watchLoop(ctx, w, path)
	return nil
}

func (s *Server) watchLoop(ctx context.Context, w *fsnotify.Watcher, path string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !configChanged(ev, path) {
				continue
			}
			slog.Info(fmt.Sprintf("%s - %s changed (%s), re-resolving", watchLogPrefix, path, ev.Op))
			if _, err := s.resolveTopology(ctx); err != nil {
				slog.Error(fmt.Sprintf("%s - keeping previous topology: %v", watchLogPrefix, err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn(fmt.Sprintf("%s - watcher error: %v", watchLogPrefix, err))
		}
	}
}

// configChanged reports whether ev touches the document at path. Chmod is ignored.
func configChanged(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != path {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
