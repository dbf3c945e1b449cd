package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leafo/pathfs/internal/pathfs"
)

// Options control which entries are catalogued and where changes are sent.
type Options struct {
	// IgnoreDirs are slash-separated directories, relative to the root, that
	// are neither recorded nor descended into.
	IgnoreDirs []string
	// IgnoreGlobs are doublestar patterns matched against relative paths.
	// A matching directory is skipped together with its contents.
	IgnoreGlobs []string
	// Strict aborts a scan on the first unreadable directory instead of
	// skipping it.
	Strict bool
	// Workers bounds concurrent hashing. Zero means runtime.NumCPU().
	Workers     int
	Meilisearch MeilisearchConfig
	Shell       ShellTargetConfig
}

// Catalog records the state of a directory tree in SQLite.
type Catalog struct {
	db      *sql.DB
	root    string
	opts    Options
	logger  *slog.Logger
	fs      FileSystem
	ignore  pathfs.Predicate
	targets []SyncTarget
}

// New constructs a Catalog using the provided database connection and configuration.
func New(db *sql.DB, root string, opts Options, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	globs := make([]pathfs.Predicate, 0, len(opts.IgnoreGlobs))
	for _, pattern := range opts.IgnoreGlobs {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		match, err := pathfs.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("ignore glob %q: %w", pattern, err)
		}
		globs = append(globs, match)
	}

	c := &Catalog{
		db:     db,
		root:   root,
		opts:   opts,
		logger: logger,
		fs:     OSFileSystem{},
		ignore: pathfs.AnyOf(globs...),
	}
	c.initTargets()
	return c, nil
}

// SetFileSystem overrides the filesystem implementation used for file access.
func (c *Catalog) SetFileSystem(fs FileSystem) {
	if fs == nil {
		c.fs = OSFileSystem{}
		return
	}
	c.fs = fs
}

// Root returns the catalogued directory.
func (c *Catalog) Root() string {
	return c.root
}

// isIgnored reports whether relPath or one of its ancestors is excluded.
func (c *Catalog) isIgnored(relPath string) bool {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}
	for _, dir := range c.opts.IgnoreDirs {
		d := strings.Trim(strings.TrimSpace(filepath.ToSlash(dir)), "/")
		if d == "" {
			continue
		}
		if relPath == d || strings.HasPrefix(relPath, d+"/") {
			return true
		}
	}
	for p := relPath; p != "." && p != ""; p = pathDir(p) {
		if c.ignore(pathfs.Path(p)) {
			return true
		}
	}
	return false
}

func pathDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// walker returns a traversal of start that never descends into ignored
// directories.
func (c *Catalog) walker(start string) *pathfs.Walker {
	return pathfs.Ls(pathfs.Path(start)).
		WithFileSystem(c.fs).
		WithLogger(c.logger).
		RecurseIf(func(rel pathfs.Path) bool {
			return !c.isIgnored(c.relativePath(filepath.Join(start, string(rel))))
		})
}

func (c *Catalog) absPath(relPath string) string {
	return filepath.Join(c.root, filepath.FromSlash(relPath))
}

func (c *Catalog) relativePath(path string) string {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// SyncPath records the current state of a single relative path. Missing or
// ignored paths are removed from the catalog.
func (c *Catalog) SyncPath(ctx context.Context, relPath string) (syncStats, ChangeSet, error) {
	relPath = filepath.ToSlash(relPath)
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return syncStats{}, ChangeSet{}, fmt.Errorf("begin transaction: %w", err)
	}
	stats, changes, err := c.syncPathTx(ctx, tx, relPath)
	if err != nil {
		tx.Rollback()
		return syncStats{}, ChangeSet{}, err
	}
	if err := tx.Commit(); err != nil {
		return syncStats{}, ChangeSet{}, fmt.Errorf("commit transaction: %w", err)
	}
	return stats, changes, nil
}

func (c *Catalog) syncPathTx(ctx context.Context, tx *sql.Tx, relPath string) (syncStats, ChangeSet, error) {
	logger := c.loggerOrDefault()
	var changes ChangeSet

	if c.isIgnored(relPath) {
		deleted, err := deleteEntryRecord(ctx, tx, relPath)
		if err != nil {
			return syncStats{}, ChangeSet{}, err
		}
		if deleted > 0 {
			changes.Deletions = append(changes.Deletions, relPath)
			logger.Info("Removed entry from catalog", "path", relPath, "reason", "ignored")
		}
		return syncStats{deleted: deleted}, changes, nil
	}

	entry, err := BuildEntry(c.fs, c.absPath(relPath), relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			deleted, delErr := deleteEntryRecord(ctx, tx, relPath)
			if delErr != nil {
				return syncStats{}, ChangeSet{}, delErr
			}
			if deleted > 0 {
				changes.Deletions = append(changes.Deletions, relPath)
				logger.Info("Removed entry from catalog", "path", relPath)
			}
			return syncStats{deleted: deleted}, changes, nil
		}
		return syncStats{}, ChangeSet{}, err
	}

	existing, found, err := loadEntry(ctx, tx, relPath)
	if err != nil {
		return syncStats{}, ChangeSet{}, err
	}
	stats, err := upsertEntry(ctx, tx, entry, existing, found)
	if err != nil {
		return syncStats{}, ChangeSet{}, err
	}
	if stats.inserted+stats.updated > 0 {
		changes.Upserts = append(changes.Upserts, entry)
		logger.Info("Synced entry", "path", relPath, "inserted", stats.inserted, "updated", stats.updated)
	}
	return stats, changes, nil
}

func (c *Catalog) loggerOrDefault() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
