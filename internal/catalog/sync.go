package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/leafo/pathfs/internal/pathfs"
)

type syncStats struct {
	inserted int
	updated  int
	deleted  int
}

// SyncSummary captures aggregate details about a synchronization run.
type SyncSummary struct {
	EntriesScanned int
	EntriesRemoved int
	Inserted       int
	Updated        int
	Deleted        int
	TotalEntries   int
	TotalFiles     int
	TotalBytes     int64
}

// CollectPaths walks root and returns the slash-separated relative paths of
// every entry that is not ignored, sorted.
func (c *Catalog) CollectPaths() ([]string, error) {
	w := c.walker(c.root).RelativePaths()

	var paths []string
	keep := func(rel pathfs.Path) {
		slash := filepath.ToSlash(string(rel))
		if !c.isIgnored(slash) {
			paths = append(paths, slash)
		}
	}

	if c.opts.Strict {
		for rel, err := range w.Try().All() {
			if err != nil {
				return nil, err
			}
			keep(rel)
		}
	} else {
		for rel := range w.All() {
			keep(rel)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// Synchronize scans the root directory, builds an entry for everything it
// finds, and reconciles the results with the SQLite database.
func (c *Catalog) Synchronize(ctx context.Context) (SyncSummary, error) {
	logger := c.loggerOrDefault()

	paths, err := c.CollectPaths()
	if err != nil {
		return SyncSummary{}, fmt.Errorf("collect paths: %w", err)
	}
	logger.Info("Collected entries to process", "count", len(paths))

	entries, err := c.buildEntries(ctx, paths)
	if err != nil {
		return SyncSummary{}, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("begin transaction: %w", err)
	}
	summary, changes, err := c.reconcile(ctx, tx, entries)
	if err != nil {
		tx.Rollback()
		return SyncSummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return SyncSummary{}, fmt.Errorf("commit transaction: %w", err)
	}
	summary.EntriesScanned = len(paths)

	logger.Info("Synchronization complete", "scanned", summary.EntriesScanned, "removed", summary.EntriesRemoved, "inserted", summary.Inserted, "updated", summary.Updated, "deleted", summary.Deleted)

	if err := c.dispatchChanges(ctx, changes); err != nil {
		return SyncSummary{}, err
	}

	if err := c.countStoredStats(ctx, &summary); err != nil {
		return SyncSummary{}, err
	}
	return summary, nil
}

// buildEntries stats and hashes paths with a bounded pool of workers. Paths
// that disappear while the scan is running are dropped.
func (c *Catalog) buildEntries(ctx context.Context, paths []string) ([]Entry, error) {
	workerCount := c.opts.Workers
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if workerCount < 1 {
		workerCount = 1
	}

	results := make([]*Entry, len(paths))
	sem := make(chan struct{}, workerCount)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	setFirstErr := func(err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	for i, relPath := range paths {
		errMu.Lock()
		if firstErr != nil {
			errMu.Unlock()
			break
		}
		errMu.Unlock()

		if ctxErr := ctx.Err(); ctxErr != nil {
			setFirstErr(ctxErr)
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, rel string) {
			defer wg.Done()
			defer func() { <-sem }()

			entry, err := BuildEntry(c.fs, c.absPath(rel), rel)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return
				}
				setFirstErr(fmt.Errorf("build entry %s: %w", rel, err))
				return
			}
			results[i] = &entry
		}(i, relPath)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	entries := make([]Entry, 0, len(results))
	for _, entry := range results {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (c *Catalog) reconcile(ctx context.Context, tx *sql.Tx, entries []Entry) (SyncSummary, ChangeSet, error) {
	existing, err := loadExistingEntries(ctx, tx)
	if err != nil {
		return SyncSummary{}, ChangeSet{}, err
	}

	var summary SyncSummary
	var changes ChangeSet
	for _, entry := range entries {
		prev, found := existing[entry.Path]
		delete(existing, entry.Path)

		stats, err := upsertEntry(ctx, tx, entry, prev, found)
		if err != nil {
			return SyncSummary{}, ChangeSet{}, err
		}
		if stats.inserted+stats.updated > 0 {
			changes.Upserts = append(changes.Upserts, entry)
		}
		summary.Inserted += stats.inserted
		summary.Updated += stats.updated
	}

	remaining := make([]string, 0, len(existing))
	for rel := range existing {
		remaining = append(remaining, rel)
	}
	sort.Strings(remaining)
	for _, rel := range remaining {
		deleted, err := deleteEntryRecord(ctx, tx, rel)
		if err != nil {
			return SyncSummary{}, ChangeSet{}, err
		}
		summary.Deleted += deleted
		changes.Deletions = append(changes.Deletions, rel)
	}
	summary.EntriesRemoved = len(remaining)

	return summary, changes, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const entryColumns = `path, is_dir, size, mode, mod_time, content_hash, mime_type`

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var entry Entry
	var mode uint32
	var modTime string
	if err := scan(&entry.Path, &entry.IsDir, &entry.Size, &mode, &modTime, &entry.ContentHash, &entry.MimeType); err != nil {
		return Entry{}, err
	}
	entry.Mode = fs.FileMode(mode)
	t, err := time.Parse(time.RFC3339Nano, modTime)
	if err != nil {
		return Entry{}, fmt.Errorf("parse mod_time for %s: %w", entry.Path, err)
	}
	entry.ModTime = t
	return entry, nil
}

func loadExistingEntries(ctx context.Context, q queryer) (map[string]Entry, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("load existing entries: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]Entry)
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan existing entry: %w", err)
		}
		existing[entry.Path] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing entries: %w", err)
	}

	return existing, nil
}

func loadEntry(ctx context.Context, q queryer, relPath string) (Entry, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE path = ?`, relPath)
	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load entry %s: %w", relPath, err)
	}
	return entry, true, nil
}

func upsertEntry(ctx context.Context, tx *sql.Tx, entry, existing Entry, found bool) (syncStats, error) {
	modTime := entry.ModTime.UTC().Format(time.RFC3339Nano)
	if found {
		if existing.sameContent(entry) {
			return syncStats{}, nil
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE entries
SET is_dir = ?, size = ?, mode = ?, mod_time = ?, content_hash = ?, mime_type = ?, updated_at = CURRENT_TIMESTAMP
WHERE path = ?
`, entry.IsDir, entry.Size, uint32(entry.Mode), modTime, entry.ContentHash, entry.MimeType, entry.Path); err != nil {
			return syncStats{}, fmt.Errorf("update entry: %w", err)
		}
		return syncStats{updated: 1}, nil
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO entries (`+entryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, entry.Path, entry.IsDir, entry.Size, uint32(entry.Mode), modTime, entry.ContentHash, entry.MimeType); err != nil {
		return syncStats{}, fmt.Errorf("insert entry: %w", err)
	}
	return syncStats{inserted: 1}, nil
}

func deleteEntryRecord(ctx context.Context, tx *sql.Tx, relPath string) (int, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, relPath)
	if err != nil {
		return 0, fmt.Errorf("delete entry %s: %w", relPath, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for %s: %w", relPath, err)
	}
	return int(affected), nil
}

func (c *Catalog) countStoredStats(ctx context.Context, summary *SyncSummary) error {
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_dir = 0 THEN 1 ELSE 0 END), 0), COALESCE(SUM(size), 0) FROM entries`).
		Scan(&summary.TotalEntries, &summary.TotalFiles, &summary.TotalBytes); err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	return nil
}

// listEntriesInDirectory returns the stored descendants of relDir.
func (c *Catalog) listEntriesInDirectory(ctx context.Context, relDir string) ([]string, error) {
	if relDir == "" || relDir == "." {
		return nil, nil
	}

	pattern := escapeLike(relDir) + "/%"

	rows, err := c.db.QueryContext(ctx, `SELECT path FROM entries WHERE path LIKE ? ESCAPE '\'`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list directory %s: %w", relDir, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory entries: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

func escapeLike(s string) string {
	var out []rune
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
