package pathfs

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Path is a UTF-8 filesystem path. Values built with NewPath are guaranteed
// to be valid UTF-8; conversions from string literals are trusted.
type Path string

// NewPath validates s and returns it as a Path.
func NewPath(s string) (Path, error) {
	if !utf8.ValidString(s) {
		return "", guardError(KindInvalidInput, Path(strings.ToValidUTF8(s, "�")), "path is not valid UTF-8")
	}
	return Path(s), nil
}

// MustPath is like NewPath but panics on invalid input.
func MustPath(s string) Path {
	p, err := NewPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return string(p) }

// Join appends elements to p using the OS separator.
func (p Path) Join(elem ...string) Path {
	parts := make([]string, 0, len(elem)+1)
	parts = append(parts, string(p))
	parts = append(parts, elem...)
	return Path(filepath.Join(parts...))
}

// JoinPath is Join for a Path argument.
func (p Path) JoinPath(rel Path) Path {
	return p.Join(string(rel))
}

// Base returns the last element of p.
func (p Path) Base() string { return filepath.Base(string(p)) }

// Dir returns all but the last element of p.
func (p Path) Dir() Path { return Path(filepath.Dir(string(p))) }

// RelativeTo returns p with the base prefix removed. It reports false when p
// is not inside base.
func (p Path) RelativeTo(base Path) (Path, bool) {
	rel, err := filepath.Rel(string(base), string(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return Path(rel), true
}

// JoinExt appends ext to the file name, keeping any extension already
// present: "file.txt" joined with "gz" becomes "file.txt.gz".
func (p Path) JoinExt(ext string) Path {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Path(string(p) + ext)
}

// AllExtensions returns everything after the first dot of the file name.
func (p Path) AllExtensions() (string, bool) {
	name := p.Base()
	if name == "." || name == string(filepath.Separator) {
		return "", false
	}
	_, exts, ok := strings.Cut(name, ".")
	return exts, ok
}

// Extensions returns the dot-separated extensions of the file name in order,
// so "a.tar.gz" yields ["tar", "gz"].
func (p Path) Extensions() []string {
	exts, ok := p.AllExtensions()
	if !ok {
		return nil
	}
	return strings.Split(exts, ".")
}

// Exists reports whether p resolves to an existing entry.
func (p Path) Exists() bool {
	_, err := os.Stat(string(p))
	return err == nil
}

// IsDir reports whether p resolves to a directory.
func (p Path) IsDir() bool {
	info, err := os.Stat(string(p))
	return err == nil && info.IsDir()
}

// IsFile reports whether p resolves to a regular file.
func (p Path) IsFile() bool {
	info, err := os.Stat(string(p))
	return err == nil && info.Mode().IsRegular()
}

// Mtime returns the modification time of p.
func (p Path) Mtime() (time.Time, bool) {
	info, err := os.Stat(string(p))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
