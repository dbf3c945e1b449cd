package pathfs

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	errSameFile   = errors.New("source and destination are the same file")
	errInsideTree = errors.New("destination is inside the source directory")
	errNotRegular = errors.New("not a regular file or directory")
)

// Cp copies p to to. See Copy.
func (p Path) Cp(to Path) error {
	return Copy(p, to)
}

// Copy copies from to to. A file is copied with its permission bits. A
// directory is mirrored breadth first: to and every subdirectory are created
// as needed and every file is copied, overwriting files already present.
//
// Copying a path onto itself, or a directory into its own subtree, fails with
// KindInvalidInput before anything is written. Entries that are neither
// regular files nor directories (pipes, sockets, devices, dangling links)
// also fail with KindInvalidInput; they are never opened.
//
// The first failure aborts the copy. Entries copied before it stay in place.
func Copy(from, to Path) error {
	return copyTree(from, to, OSFileSystem{})
}

func copyTree(from, to Path, fsys FileSystem) error {
	if err := from.AssertExists(); err != nil {
		return err
	}
	if !from.IsDir() {
		if !from.IsFile() {
			return &Error{Kind: KindInvalidInput, Op: "copy", Path: from, Dest: to, Err: errNotRegular}
		}
		return fsCopy(from, to)
	}
	if err := checkNotNested(from, to); err != nil {
		return err
	}
	if err := to.Mkdirs(); err != nil {
		return err
	}

	t := newTraversal(walkConfig{
		base:    from,
		recurse: Always,
		filter:  All,
		fsys:    fsys,
	}, false)
	for {
		v, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		dest := to.JoinPath(v.rel)
		switch v.kind {
		case kindDir:
			if err := dest.Mkdir(); err != nil {
				return err
			}
		case kindFile:
			if err := fsCopy(v.full, dest); err != nil {
				return err
			}
		default:
			return &Error{Kind: KindInvalidInput, Op: "copy", Path: v.full, Dest: dest, Err: errNotRegular}
		}
	}
}

// checkNotNested rejects a directory copy whose destination is the source
// itself or lies below it.
func checkNotNested(from, to Path) error {
	nested := &Error{Kind: KindInvalidInput, Op: "copy", Path: from, Dest: to, Err: errInsideTree}

	absFrom, err := filepath.Abs(string(from))
	if err != nil {
		return ioError2("copy", from, to, err)
	}
	absTo, err := filepath.Abs(string(to))
	if err != nil {
		return ioError2("copy", from, to, err)
	}
	if _, inside := Path(absTo).RelativeTo(Path(absFrom)); inside {
		return nested
	}

	// Catches an existing destination that aliases the source through a link.
	fromInfo, err := os.Stat(string(from))
	if err != nil {
		return ioError2("copy", from, to, err)
	}
	if toInfo, err := os.Stat(string(to)); err == nil && os.SameFile(fromInfo, toInfo) {
		return nested
	}
	return nil
}

// RmMatching removes the entries matched by pred. When p is a directory only
// its immediate children are tested: a matching child directory is removed
// with everything below it, and nothing below a non-matching child is looked
// at. When p is not a directory it is removed if it matches. A nil pred
// matches nothing.
//
// pred receives full paths. A failure to list p or to remove a child aborts
// the removal and is returned.
func (p Path) RmMatching(pred Predicate) error {
	return rmMatching(p, pred, OSFileSystem{})
}

func rmMatching(p Path, pred Predicate, fsys FileSystem) error {
	if pred == nil {
		pred = Never
	}
	if !p.IsDir() {
		if pred(p) {
			return p.Rm()
		}
		return nil
	}

	for child, err := range p.Ls().WithFileSystem(fsys).Try().All() {
		if err != nil {
			return err
		}
		if !pred(child) {
			continue
		}
		if err := child.Rm(); err != nil {
			return err
		}
	}
	return nil
}

