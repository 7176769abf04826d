package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ErrWatching indicates Watch is already running.
var ErrWatching = errors.New("cache already watching")

// Watch re-caches local assets when their files are written or replaced.
// It blocks until ctx is done.
func (c *Cache) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cache: create watcher: %w", err)
	}

	c.watchMu.Lock()
	if c.watcher != nil {
		c.watchMu.Unlock()
		w.Close()
		return ErrWatching
	}
	c.watcher = w
	c.watched = make(map[string]struct{})
	for _, p := range c.localPaths() {
		c.addDirLocked(filepath.Dir(p))
	}
	c.watchMu.Unlock()

	defer func() {
		c.watchMu.Lock()
		c.watcher = nil
		c.watched = nil
		c.watchMu.Unlock()
		w.Close()
	}()

	logrus.WithFields(logrus.Fields{
		"function": "Cache.Watch",
		"entries":  c.Len(),
	}).Info("Watching local assets")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				c.refresh(ctx, filepath.Clean(ev.Name))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logrus.WithFields(logrus.Fields{
				"function": "Cache.Watch",
				"error":    err.Error(),
			}).Warn("File watcher error")
		}
	}
}

// Watching reports whether Watch is running.
func (c *Cache) Watching() bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return c.watcher != nil
}

func (c *Cache) watchPath(path string) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watcher == nil {
		return
	}
	c.addDirLocked(filepath.Dir(path))
}

func (c *Cache) addDirLocked(dir string) {
	if _, ok := c.watched[dir]; ok {
		return
	}
	if err := c.watcher.Add(dir); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Cache.addDirLocked",
			"dir":      dir,
			"error":    err.Error(),
		}).Warn("Failed to watch asset directory")
		return
	}
	c.watched[dir] = struct{}{}
}

func (c *Cache) localPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, e := range c.entries {
		if !e.Remote {
			out = append(out, e.Path)
		}
	}
	return out
}

// refresh re-caches every local entry backed by path. A failed decode keeps
// the previous entry.
func (c *Cache) refresh(ctx context.Context, path string) {
	c.mu.RLock()
	var stale []location
	for _, e := range c.entries {
		if !e.Remote && e.Path == path {
			stale = append(stale, e.loc)
		}
	}
	c.mu.RUnlock()

	for _, loc := range stale {
		_, err, _ := c.group.Do(loc.key, func() (any, error) {
			return nil, c.fetch(ctx, loc, false)
		})
		if err != nil {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"function": "Cache.refresh",
			"uri":      loc.key,
			"path":     path,
		}).Info("Re-cached modified asset")
	}
}
