package gamefile

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const snapshotTimeLayout = "20060102-150405"

var snapshotPattern = regexp.MustCompile(`_\d{8}-\d{6}$`)

// Snapshotter watches a loadout directory and keeps timestamped copies of
// every modified file, pruned to a maximum per original. It is a cheap
// versioning net for player loadouts the game rewrites in place.
type Snapshotter struct {
	dir string
	max int

	cancel context.CancelFunc
}

func NewSnapshotter(dir string, maxSnapshots int) *Snapshotter {
	if maxSnapshots <= 0 {
		maxSnapshots = 10
	}
	return &Snapshotter{dir: dir, max: maxSnapshots}
}

// Start begins watching. The directory is created if absent.
func (s *Snapshotter) Start() error {
	if s.cancel != nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("gamefile: snapshot dir %s: %w", s.dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("gamefile: watcher: %w", err)
	}
	if err := addRecursive(w, s.dir); err != nil {
		w.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

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
				if ev.Op&fsnotify.Create != 0 {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						_ = addRecursive(w, ev.Name)
						continue
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					s.snapshot(ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("[snapshotter] watch %s: %v", s.dir, err)
			}
		}
	}()
	log.Printf("[snapshotter] watching %s", s.dir)
	return nil
}

func (s *Snapshotter) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		log.Printf("[snapshotter] stopped watching %s", s.dir)
	}
}

func (s *Snapshotter) snapshot(path string) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if snapshotPattern.MatchString(stem) {
		return // already a snapshot
	}

	name := fmt.Sprintf("%s_%s%s", stem, time.Now().Format(snapshotTimeLayout), filepath.Ext(path))
	dst := filepath.Join(filepath.Dir(path), name)
	if err := copyFile(path, dst); err != nil {
		log.Printf("[snapshotter] copy %s: %v", path, err)
		return
	}
	s.prune(path)
}

// prune keeps only the newest max snapshots of one original file.
func (s *Snapshotter) prune(original string) {
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	pattern := filepath.Join(filepath.Dir(original), stem+"_*"+filepath.Ext(original))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	var snaps []string
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
		if snapshotPattern.MatchString(base) {
			snaps = append(snaps, m)
		}
	}
	if len(snaps) <= s.max {
		return
	}

	sort.Slice(snaps, func(i, j int) bool {
		fi, _ := os.Stat(snaps[i])
		fj, _ := os.Stat(snaps[j])
		if fi == nil || fj == nil {
			return snaps[i] > snaps[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	for _, old := range snaps[s.max:] {
		if err := os.Remove(old); err != nil {
			log.Printf("[snapshotter] remove %s: %v", old, err)
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
