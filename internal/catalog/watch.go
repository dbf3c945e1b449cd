package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounceInterval = 150 * time.Millisecond

// WatchAndSync monitors the root directory for changes and incrementally
// updates the SQLite database when filesystem events settle.
func (c *Catalog) WatchAndSync(ctx context.Context) error {
	logger := c.loggerOrDefault()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]struct{})
	if err := c.addRecursiveWatch(watcher, c.root, watched); err != nil {
		return err
	}

	logger.Info("Watch mode active", "root", c.root, "debounce", watchDebounceInterval.String())

	var debounceTimer *time.Timer
	pending := newPendingChanges()

	for {
		var debounceC <-chan time.Time
		if debounceTimer != nil {
			debounceC = debounceTimer.C
		}

		select {
		case <-ctx.Done():
			logger.Info("Stopping watch mode", "reason", ctx.Err())
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if c.handleWatcherEvent(event, watcher, watched, pending) {
				scheduleSync(&debounceTimer)
			}
		case err, ok := <-watcher.Errors:
			if !ok || err == nil {
				continue
			}
			logger.Error("Watcher error", "error", err)
		case <-debounceC:
			stopTimer(&debounceTimer)
			if pending.isEmpty() {
				continue
			}
			if syncErr := c.applyIncrementalChanges(ctx, pending); syncErr != nil {
				logger.Error("Incremental synchronization failed", "error", syncErr)
				if errors.Is(syncErr, context.Canceled) {
					return syncErr
				}
				continue
			}
			pending = newPendingChanges()
		}
	}
}

// pendingChanges accumulates relative paths between debounce ticks.
type pendingChanges struct {
	changed     map[string]struct{}
	removedDirs map[string]struct{}
}

func newPendingChanges() *pendingChanges {
	return &pendingChanges{
		changed:     make(map[string]struct{}),
		removedDirs: make(map[string]struct{}),
	}
}

func (p *pendingChanges) isEmpty() bool {
	return len(p.changed) == 0 && len(p.removedDirs) == 0
}

// handleWatcherEvent records the paths affected by event and reports whether
// a sync should be scheduled.
func (c *Catalog) handleWatcherEvent(event fsnotify.Event, watcher *fsnotify.Watcher, watched map[string]struct{}, pending *pendingChanges) bool {
	logger := c.loggerOrDefault()

	path := filepath.Clean(event.Name)
	rel := c.relativePath(path)
	if rel == "." || c.isIgnored(rel) {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		info, err := c.fs.Stat(path)
		if err == nil && info.IsDir() {
			if watcher != nil {
				if err := c.addRecursiveWatch(watcher, path, watched); err != nil {
					logger.Error("Failed to watch new directory", "path", rel, "error", err)
				}
			}
			delete(pending.removedDirs, rel)
			// Entries created before the watch was registered produce no events.
			c.queueTree(path, pending)
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := watched[path]; ok {
			if watcher != nil {
				if err := watcher.Remove(path); err != nil {
					logger.Debug("Failed to stop watching directory", "path", rel, "error", err)
				}
			}
			delete(watched, path)
			logger.Info("Stopped watching directory", "path", rel)
			pending.removedDirs[rel] = struct{}{}
		}
	}

	if !shouldTriggerSync(event.Op) {
		return false
	}

	pending.changed[rel] = struct{}{}
	return true
}

// addRecursiveWatch registers start and every non-ignored directory below it.
func (c *Catalog) addRecursiveWatch(watcher *fsnotify.Watcher, start string, watched map[string]struct{}) error {
	logger := c.loggerOrDefault()

	add := func(dir string) error {
		clean := filepath.Clean(dir)
		if _, ok := watched[clean]; ok {
			return nil
		}
		if err := watcher.Add(clean); err != nil {
			return fmt.Errorf("watch directory %s: %w", clean, err)
		}
		watched[clean] = struct{}{}
		logger.Debug("Watching directory", "path", c.relativePath(clean))
		return nil
	}

	if err := add(start); err != nil {
		return err
	}
	for dir := range c.walker(start).Dirs().All() {
		if c.isIgnored(c.relativePath(string(dir))) {
			continue
		}
		if err := add(string(dir)); err != nil {
			return err
		}
	}
	return nil
}

// queueTree marks every non-ignored entry below dir as changed.
func (c *Catalog) queueTree(dir string, pending *pendingChanges) {
	for p := range c.walker(dir).All() {
		rel := c.relativePath(string(p))
		if c.isIgnored(rel) {
			continue
		}
		pending.changed[rel] = struct{}{}
	}
}

func (c *Catalog) applyIncrementalChanges(ctx context.Context, pending *pendingChanges) error {
	if pending.isEmpty() {
		return nil
	}

	logger := c.loggerOrDefault()

	changedList := sortedKeys(pending.changed)
	removedDirList := sortedKeys(pending.removedDirs)

	totals := syncStats{}
	var changes ChangeSet

	for _, rel := range changedList {
		stats, delta, syncErr := c.SyncPath(ctx, rel)
		if syncErr != nil {
			return syncErr
		}
		totals.inserted += stats.inserted
		totals.updated += stats.updated
		totals.deleted += stats.deleted
		changes.Merge(delta)
	}

	for _, rel := range removedDirList {
		if rel == "." || rel == "" {
			continue
		}
		paths, listErr := c.listEntriesInDirectory(ctx, rel)
		if listErr != nil {
			return listErr
		}
		dirDeleted := 0
		for _, p := range paths {
			stats, delta, syncErr := c.SyncPath(ctx, p)
			if syncErr != nil {
				return syncErr
			}
			dirDeleted += stats.deleted
			totals.deleted += stats.deleted
			changes.Merge(delta)
		}
		logger.Debug("Removed directory from catalog", "directory", rel, "entries", len(paths), "deleted", dirDeleted)
	}

	logger.Info("Incremental synchronization summary", "changed", len(changedList), "removed_dirs", len(removedDirList), "inserted", totals.inserted, "updated", totals.updated, "deleted", totals.deleted)

	return c.dispatchChanges(ctx, changes)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shouldTriggerSync(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) != 0
}

func scheduleSync(timer **time.Timer) {
	if *timer == nil {
		*timer = time.NewTimer(watchDebounceInterval)
		return
	}
	if !(*timer).Stop() {
		select {
		case <-(*timer).C:
		default:
		}
	}
	(*timer).Reset(watchDebounceInterval)
}

func stopTimer(timer **time.Timer) {
	if *timer == nil {
		return
	}
	if !(*timer).Stop() {
		select {
		case <-(*timer).C:
		default:
		}
	}
	*timer = nil
}
