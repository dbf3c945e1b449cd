package pathfs

import (
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"unicode/utf8"
)

// Filter narrows which discovered entries a Walker yields. It never affects
// which directories are expanded.
type Filter int

const (
	All Filter = iota
	FilesOnly
	DirsOnly
)

// PathForm selects how yielded paths are expressed.
type PathForm int

const (
	// FullPaths yields the base path joined with the entry's relative path.
	FullPaths PathForm = iota
	// RelativePaths yields paths relative to the base path.
	RelativePaths
)

// Predicate decides something about a path. Walkers call it with the path
// relative to their base.
type Predicate func(Path) bool

// Always is a Predicate that accepts every path.
func Always(Path) bool { return true }

// Never is a Predicate that rejects every path.
func Never(Path) bool { return false }

type entryKind int

const (
	kindOther entryKind = iota
	kindFile
	kindDir
)

func (f Filter) accepts(kind entryKind) bool {
	switch f {
	case FilesOnly:
		return kind == kindFile
	case DirsOnly:
		return kind == kindDir
	default:
		return true
	}
}

type walkConfig struct {
	base    Path
	recurse Predicate
	filter  Filter
	form    PathForm
	fsys    FileSystem
	logger  *slog.Logger
}

type queued struct {
	full  Path
	rel   Path
	entry fs.DirEntry
}

type visit struct {
	full Path
	rel  Path
	kind entryKind
}

func (v visit) path(form PathForm) Path {
	if form == RelativePaths {
		return v.rel
	}
	return v.full
}

// traversal is the single engine behind Walker and TryWalker. In lenient
// mode listing failures drop the affected directory's children; otherwise
// the first failure ends the traversal and is returned once.
type traversal struct {
	cfg     walkConfig
	lenient bool
	started bool
	done    bool
	queue   []queued
}

func newTraversal(cfg walkConfig, lenient bool) *traversal {
	return &traversal{cfg: cfg, lenient: lenient}
}

// next returns the next entry accepted by the filter. ok is false at the end
// of the sequence or when err is set.
func (t *traversal) next() (v visit, ok bool, err error) {
	if t.done {
		return visit{}, false, nil
	}
	if !t.started {
		t.started = true
		if err := t.expand(t.cfg.base, ""); err != nil {
			return t.fail(err)
		}
	}

	for len(t.queue) > 0 {
		q := t.queue[0]
		t.queue[0] = queued{}
		t.queue = t.queue[1:]

		kind := t.kindOf(q)
		if kind == kindDir && t.cfg.recurse(q.rel) {
			if err := t.expand(q.full, q.rel); err != nil {
				return t.fail(err)
			}
		}
		if t.cfg.filter.accepts(kind) {
			return visit{full: q.full, rel: q.rel, kind: kind}, true, nil
		}
	}

	t.done = true
	t.queue = nil
	return visit{}, false, nil
}

func (t *traversal) fail(err error) (visit, bool, error) {
	t.done = true
	t.queue = nil
	return visit{}, false, err
}

// expand appends the children of dir to the back of the queue.
func (t *traversal) expand(dir, rel Path) error {
	entries, err := t.cfg.fsys.ReadDir(string(dir))
	if err != nil {
		if !t.lenient {
			return ioError("list", dir, err)
		}
		t.logger().Debug("Skipping unreadable directory", "path", dir, "read", len(entries), "error", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !utf8.ValidString(name) {
			if !t.lenient {
				return guardError(KindInvalidInput, dir, "directory "+string(dir)+" contains an entry whose name is not valid UTF-8")
			}
			t.logger().Debug("Skipping entry with non UTF-8 name", "dir", dir)
			continue
		}
		t.queue = append(t.queue, queued{
			full:  dir.Join(name),
			rel:   rel.Join(name),
			entry: entry,
		})
	}
	return nil
}

// kindOf classifies an entry, following symbolic links.
func (t *traversal) kindOf(q queued) entryKind {
	mode := q.entry.Type()
	if mode&fs.ModeSymlink != 0 {
		info, err := t.cfg.fsys.Stat(string(q.full))
		if err != nil {
			return kindOther
		}
		mode = info.Mode()
	}
	switch {
	case mode.IsDir():
		return kindDir
	case mode.IsRegular():
		return kindFile
	default:
		return kindOther
	}
}

func (t *traversal) logger() *slog.Logger {
	if t.cfg.logger != nil {
		return t.cfg.logger
	}
	return slog.Default()
}

// Walker lazily lists the entries below a base directory, breadth first in
// discovery order. By default it does not recurse, yields files and
// directories alike, and yields full paths.
//
// A Walker is best-effort: directories that cannot be listed contribute no
// entries and the walk carries on. Use Try for a walk that reports the first
// failure. Configure a Walker before the first call to Next; configuration
// changes made afterwards do not affect a walk in progress. A Walker must not
// be used from more than one goroutine at a time.
type Walker struct {
	cfg walkConfig
	t   *traversal
}

// Ls returns a Walker over base.
func Ls(base Path) *Walker {
	return &Walker{cfg: walkConfig{
		base:    base,
		recurse: Never,
		filter:  All,
		form:    FullPaths,
		fsys:    OSFileSystem{},
	}}
}

// Ls returns a Walker over p.
func (p Path) Ls() *Walker {
	return Ls(p)
}

// RecurseIf descends into a directory only when pred accepts its path
// relative to the base, regardless of the configured PathForm.
func (w *Walker) RecurseIf(pred Predicate) *Walker {
	if pred == nil {
		pred = Never
	}
	w.cfg.recurse = pred
	return w
}

// Recurse descends into every directory.
func (w *Walker) Recurse() *Walker {
	return w.RecurseIf(Always)
}

// Files restricts output to regular files.
func (w *Walker) Files() *Walker {
	w.cfg.filter = FilesOnly
	return w
}

// Dirs restricts output to directories.
func (w *Walker) Dirs() *Walker {
	w.cfg.filter = DirsOnly
	return w
}

// RelativePaths yields paths relative to the base.
func (w *Walker) RelativePaths() *Walker {
	w.cfg.form = RelativePaths
	return w
}

// WithFileSystem lists directories through fsys instead of the OS.
func (w *Walker) WithFileSystem(fsys FileSystem) *Walker {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	w.cfg.fsys = fsys
	return w
}

// WithLogger sets the logger that reports skipped directories at debug level.
func (w *Walker) WithLogger(logger *slog.Logger) *Walker {
	w.cfg.logger = logger
	return w
}

// Base returns the directory the walker is anchored to.
func (w *Walker) Base() Path {
	return w.cfg.base
}

// Next returns the next path. It reports false once the walk is exhausted.
func (w *Walker) Next() (Path, bool) {
	if w.t == nil {
		w.t = newTraversal(w.cfg, true)
	}
	v, ok, _ := w.t.next()
	if !ok {
		return "", false
	}
	return v.path(w.cfg.form), true
}

// All returns an iterator over the remaining paths.
func (w *Walker) All() iter.Seq[Path] {
	return func(yield func(Path) bool) {
		for {
			p, ok := w.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Collect drains the walker into a slice.
func (w *Walker) Collect() []Path {
	var paths []Path
	for p := range w.All() {
		paths = append(paths, p)
	}
	return paths
}

// Try returns a fail-fast walk with the same configuration. The Walker
// itself is left untouched.
func (w *Walker) Try() *TryWalker {
	return &TryWalker{form: w.cfg.form, t: newTraversal(w.cfg, false)}
}

// TryWalker is the fail-fast counterpart of Walker: the first listing
// failure is returned once and ends the walk.
type TryWalker struct {
	form PathForm
	t    *traversal
}

// Next returns the next path. At the end of the walk it returns io.EOF.
// A listing failure is returned as a *Error exactly once; every later call
// returns io.EOF.
func (tw *TryWalker) Next() (Path, error) {
	v, ok, err := tw.t.next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", io.EOF
	}
	return v.path(tw.form), nil
}

// All returns an iterator over the remaining paths. A failure is yielded
// with an empty path as the final element.
func (tw *TryWalker) All() iter.Seq2[Path, error] {
	return func(yield func(Path, error) bool) {
		for {
			p, err := tw.Next()
			if err == io.EOF {
				return
			}
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the walk. On failure it returns the paths yielded before
// the failure along with the error.
func (tw *TryWalker) Collect() ([]Path, error) {
	var paths []Path
	for p, err := range tw.All() {
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
