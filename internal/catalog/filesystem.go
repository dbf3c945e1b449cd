package catalog

import (
	"io/fs"
	"os"

	"github.com/leafo/pathfs/internal/pathfs"
)

// FileSystem abstracts filesystem interactions so tests can provide in-memory implementations.
type FileSystem interface {
	pathfs.FileSystem
	Open(name string) (fs.File, error)
}

// OSFileSystem implements FileSystem using the local OS filesystem.
type OSFileSystem struct {
	pathfs.OSFileSystem
}

func (OSFileSystem) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// MapFileSystem serves an io/fs.FS through FileSystem.
type MapFileSystem struct {
	pathfs.FS
}

func (m MapFileSystem) Open(name string) (fs.File, error) {
	return m.Sub.Open(name)
}
