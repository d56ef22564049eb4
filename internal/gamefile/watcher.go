package gamefile

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchFile invokes reload whenever path is written or recreated. The
// watch is placed on the parent directory so editors that replace the file
// (rename-over) are still observed. Runs until ctx is cancelled.
func watchFile(ctx context.Context, path string, reload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("gamefile: watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("gamefile: watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("[gamefile] watch %s: %v", dir, err)
			}
		}
	}()
	return nil
}
