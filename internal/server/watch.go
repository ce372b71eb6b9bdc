package server

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchData reloads the store when the data file changes on disk, so a
// concurrent CLI invocation shows up on connected SSE clients. Blocks
// until the context is cancelled.
func watchData(ctx context.Context, path string, reload func() error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("serve: could not create fsnotify watcher", "err", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Warn("serve: could not watch data dir", "dir", filepath.Dir(path), "err", err)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if err := reload(); err != nil {
					log.Warn("serve: failed to reload data file", "path", path, "err", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("serve: watcher error", "err", err)
		case <-ctx.Done():
			return
		}
	}
}
