package catalog

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/leafo/pathfs/internal/pathfs"
	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

func newTestCatalog(t *testing.T, files fstest.MapFS, opts Options) *Catalog {
	t.Helper()

	c, err := New(openTestDB(t), ".", opts, nil)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	c.SetFileSystem(MapFileSystem{pathfs.FS{Sub: files}})
	return c
}

func storedPaths(t *testing.T, c *Catalog) []string {
	t.Helper()

	entries, err := c.StoredEntries(context.Background())
	if err != nil {
		t.Fatalf("stored entries: %v", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	return paths
}

func assertPaths(t *testing.T, got []string, want ...string) {
	t.Helper()

	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("expected paths %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected paths %v, got %v", want, got)
		}
	}
}

func TestSynchronizeInsertUpdateDelete(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{
		"docs/readme.txt": {Data: []byte("hello world\n")},
		"docs/notes.md":   {Data: []byte("# notes\n")},
		"main.go":         {Data: []byte("package main\n")},
	}
	c := newTestCatalog(t, files, Options{Workers: 2})

	summary, err := c.Synchronize(ctx)
	if err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if summary.EntriesScanned != 4 || summary.Inserted != 4 || summary.Updated != 0 || summary.Deleted != 0 {
		t.Fatalf("unexpected summary after insert: %+v", summary)
	}
	if summary.TotalEntries != 4 || summary.TotalFiles != 3 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	assertPaths(t, storedPaths(t, c), "docs", "docs/notes.md", "docs/readme.txt", "main.go")

	summary, err = c.Synchronize(ctx)
	if err != nil {
		t.Fatalf("unchanged sync: %v", err)
	}
	if summary.Inserted != 0 || summary.Updated != 0 || summary.Deleted != 0 {
		t.Fatalf("expected no changes, got %+v", summary)
	}

	files["main.go"] = &fstest.MapFile{Data: []byte("package main\n\nfunc main() {}\n")}
	delete(files, "docs/notes.md")

	summary, err = c.Synchronize(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if summary.Inserted != 0 || summary.Updated != 1 || summary.Deleted != 1 || summary.EntriesRemoved != 1 {
		t.Fatalf("unexpected summary after update: %+v", summary)
	}
	assertPaths(t, storedPaths(t, c), "docs", "docs/readme.txt", "main.go")
}

func TestSynchronizeRecordsHashAndMimeType(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, fstest.MapFS{
		"a.txt": {Data: []byte("hello world")},
		"dir":   {Mode: fs.ModeDir | 0o755},
	}, Options{})

	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	entry, found, err := c.StoredEntry(ctx, "a.txt")
	if err != nil || !found {
		t.Fatalf("expected stored entry, found=%v err=%v", found, err)
	}
	if entry.ContentHash != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Fatalf("unexpected hash %q", entry.ContentHash)
	}
	if entry.MimeType != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected mime type %q", entry.MimeType)
	}
	if entry.Size != 11 || entry.IsDir {
		t.Fatalf("unexpected entry %+v", entry)
	}

	dir, found, err := c.StoredEntry(ctx, "dir")
	if err != nil || !found {
		t.Fatalf("expected stored dir, found=%v err=%v", found, err)
	}
	if !dir.IsDir || dir.ContentHash != "" || dir.MimeType != "" {
		t.Fatalf("unexpected dir entry %+v", dir)
	}

	if _, found, err := c.StoredEntry(ctx, "missing"); err != nil || found {
		t.Fatalf("expected no entry, found=%v err=%v", found, err)
	}
}

func TestSynchronizeSkipsIgnoredEntries(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, fstest.MapFS{
		"src/app.go":          {Data: []byte("package app")},
		"src/app.tmp":         {Data: []byte("scratch")},
		"node_modules/x/y.js": {Data: []byte("x")},
		"build/cache/out.o":   {Data: []byte("o")},
		"keep.txt":            {Data: []byte("k")},
	}, Options{
		IgnoreDirs:  []string{"node_modules"},
		IgnoreGlobs: []string{"**/*.tmp", "build/cache"},
	})

	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	assertPaths(t, storedPaths(t, c), "build", "keep.txt", "src", "src/app.go")
}

func TestNewRejectsBadGlob(t *testing.T) {
	_, err := New(openTestDB(t), ".", Options{IgnoreGlobs: []string{"[unclosed"}}, nil)
	if !errors.Is(err, pathfs.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

// failingFileSystem fails ReadDir for the listed directories.
type failingFileSystem struct {
	MapFileSystem
	fail map[string]bool
}

var errUnreadable = errors.New("unreadable")

func (f failingFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	if f.fail[filepath.ToSlash(name)] {
		return nil, errUnreadable
	}
	return f.MapFileSystem.ReadDir(name)
}

func TestSynchronizeUnreadableDirectory(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{
		"ok/a.txt":     {Data: []byte("a")},
		"locked/b.txt": {Data: []byte("b")},
	}
	broken := failingFileSystem{
		MapFileSystem: MapFileSystem{pathfs.FS{Sub: files}},
		fail:          map[string]bool{"locked": true},
	}

	lenient := newTestCatalog(t, files, Options{})
	lenient.SetFileSystem(broken)
	if _, err := lenient.Synchronize(ctx); err != nil {
		t.Fatalf("lenient sync: %v", err)
	}
	assertPaths(t, storedPaths(t, lenient), "locked", "ok", "ok/a.txt")

	strict := newTestCatalog(t, files, Options{Strict: true})
	strict.SetFileSystem(broken)
	_, err := strict.Synchronize(ctx)
	if !errors.Is(err, errUnreadable) || !errors.Is(err, pathfs.ErrIO) {
		t.Fatalf("expected listing failure, got %v", err)
	}
	if paths := storedPaths(t, strict); len(paths) != 0 {
		t.Fatalf("strict sync should not store anything, got %v", paths)
	}
}

func TestSyncPathInsertAndRemove(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{"a.txt": {Data: []byte("a")}}
	c := newTestCatalog(t, files, Options{IgnoreGlobs: []string{"*.log"}})

	stats, changes, err := c.SyncPath(ctx, "a.txt")
	if err != nil {
		t.Fatalf("sync path: %v", err)
	}
	if stats.inserted != 1 || len(changes.Upserts) != 1 {
		t.Fatalf("unexpected insert result: %+v %+v", stats, changes)
	}

	stats, changes, err = c.SyncPath(ctx, "a.txt")
	if err != nil {
		t.Fatalf("resync path: %v", err)
	}
	if stats != (syncStats{}) || !changes.IsEmpty() {
		t.Fatalf("expected no-op, got %+v %+v", stats, changes)
	}

	delete(files, "a.txt")
	stats, changes, err = c.SyncPath(ctx, "a.txt")
	if err != nil {
		t.Fatalf("sync removed path: %v", err)
	}
	if stats.deleted != 1 || len(changes.Deletions) != 1 || changes.Deletions[0] != "a.txt" {
		t.Fatalf("unexpected delete result: %+v %+v", stats, changes)
	}

	stats, _, err = c.SyncPath(ctx, "missing.txt")
	if err != nil || stats != (syncStats{}) {
		t.Fatalf("expected missing path to be a no-op, got %+v %v", stats, err)
	}
}

func TestListEntriesInDirectoryEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, fstest.MapFS{
		"a_b/one.txt": {Data: []byte("1")},
		"axb/two.txt": {Data: []byte("2")},
		"a_b2/x.txt":  {Data: []byte("3")},
	}, Options{})

	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	paths, err := c.listEntriesInDirectory(ctx, "a_b")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	assertPaths(t, paths, "a_b/one.txt")

	paths, err = c.listEntriesInDirectory(ctx, ".")
	if err != nil || len(paths) != 0 {
		t.Fatalf("expected nothing for root, got %v %v", paths, err)
	}
}
