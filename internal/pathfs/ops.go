package pathfs

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

var errNotUTF8 = errors.New("stream did not contain valid UTF-8")

// AssertExists fails with a KindNotFound error when p does not exist or
// cannot be accessed.
func (p Path) AssertExists() error {
	if !p.Exists() {
		return guardError(KindNotFound, p, fmt.Sprintf("path %q does not exist or is not accessible", string(p)))
	}
	return nil
}

// AssertDir fails with a KindInvalidInput error when p is not a directory.
func (p Path) AssertDir() error {
	if !p.IsDir() {
		return guardError(KindInvalidInput, p, fmt.Sprintf("path %q is not a directory", string(p)))
	}
	return nil
}

// AssertFile fails with a KindInvalidInput error when p is not a file.
func (p Path) AssertFile() error {
	if !p.IsFile() {
		return guardError(KindInvalidInput, p, fmt.Sprintf("path %q is not a file", string(p)))
	}
	return nil
}

// Mkdir creates the directory p unless it already exists.
func (p Path) Mkdir() error {
	if p.Exists() {
		return nil
	}
	return fsCreateDir(p)
}

// Mkdirs creates p and any missing parents.
func (p Path) Mkdirs() error {
	return fsCreateDirAll(p)
}

// Rm removes the file or directory tree at p. A missing path is not an error.
func (p Path) Rm() error {
	info, err := os.Lstat(string(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ioError("remove", p, err)
	}
	if info.IsDir() {
		return fsRemoveDirAll(p)
	}
	return fsRemoveFile(p)
}

// Mv renames p to to, replacing to if it is an existing file.
func (p Path) Mv(to Path) error {
	if err := p.AssertExists(); err != nil {
		return err
	}
	return fsRename(p, to)
}

// Write replaces the contents of the file at p with data, creating the file
// and any missing parent directories.
func (p Path) Write(data []byte) error {
	if parent := p.Dir(); parent != "" && parent != p {
		if err := parent.Mkdirs(); err != nil {
			return err
		}
	}
	return fsWrite(p, data)
}

// WriteString is Write for string content.
func (p Path) WriteString(s string) error {
	return p.Write([]byte(s))
}

// ReadBytes returns the contents of the file at p.
func (p Path) ReadBytes() ([]byte, error) {
	return fsRead(p)
}

// ReadString returns the contents of the file at p as a string. Content
// that is not valid UTF-8 is rejected with a KindInvalidInput error.
func (p Path) ReadString() (string, error) {
	data, err := fsRead(p)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &Error{Kind: KindInvalidInput, Op: "read", Path: p, Err: errNotUTF8}
	}
	return string(data), nil
}
