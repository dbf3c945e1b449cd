package pathfs

import (
	"io/fs"
	"os"
)

// FileSystem is the listing surface a Walker consumes. Tests substitute
// in-memory or fault-injecting implementations.
type FileSystem interface {
	// ReadDir lists name. Implementations may return the entries read so far
	// together with an error.
	ReadDir(name string) ([]fs.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
}

// OSFileSystem implements FileSystem using the local OS filesystem.
type OSFileSystem struct{}

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// Unsorted on purpose: callers get OS listing order.
	return f.ReadDir(-1)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// FS adapts an io/fs.FS, such as fstest.MapFS, to FileSystem. Paths handed to
// it are slash-separated and relative to the root of Sub.
type FS struct {
	Sub fs.FS
}

func (f FS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(f.Sub, name)
}

func (f FS) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(f.Sub, name)
}
