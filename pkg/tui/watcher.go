package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/silk/pkg/logger"
)

// watchDepth is how far below the cache root directories are watched: the
// root itself, host directories and owner directories. Repository contents
// are not watched.
const watchDepth = 2

// CacheWatcher reports changes to the set of cached repositories
type CacheWatcher struct {
	root    string
	watcher *fsnotify.Watcher
	changes chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCacheWatcher watches root, creating it when missing
func NewCacheWatcher(ctx context.Context, root string) (*CacheWatcher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory %s", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &CacheWatcher{
		root:    root,
		watcher: watcher,
		changes: make(chan struct{}, 1),
		cancel:  cancel,
	}

	if err := w.addTree(ctx, root); err != nil {
		cancel()
		watcher.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return w, nil
}

// Changes returns a channel that receives a value after the cache changes.
// Bursts of events are coalesced. The channel is closed by Close.
func (w *CacheWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching
func (w *CacheWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *CacheWatcher) depth(path string) int {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return 0
	}
	if strings.HasPrefix(rel, "..") {
		return -1
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

// hidden reports whether path lies under a dot directory of the root, such
// as the store's lock directory
func (w *CacheWatcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return strings.HasPrefix(rel, ".")
}

// addTree watches dir and its subdirectories down to watchDepth
func (w *CacheWatcher) addTree(ctx context.Context, dir string) error {
	d := w.depth(dir)
	if d < 0 || d > watchDepth || w.hidden(dir) {
		return nil
	}

	logger.G(ctx).WithField("path", dir).Debug("watching directory")
	if err := w.watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	if d == watchDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.addTree(ctx, filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *CacheWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.changes)
	log := logger.G(ctx)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.hidden(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(ctx, event.Name); err != nil {
						log.WithError(err).WithField("path", event.Name).Debug("failed to watch new directory")
					}
				}
			}
			log.WithField("path", event.Name).WithField("operation", event.Op.String()).Debug("cache change detected")
			w.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("error watching plugin cache")
		case <-ctx.Done():
			return
		}
	}
}

func (w *CacheWatcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
