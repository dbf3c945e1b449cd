package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a file is handed to MIME detection.
const sniffLen = 3072

// Entry describes one file or directory below the catalog root.
type Entry struct {
	Path        string      `json:"path"`
	IsDir       bool        `json:"is_dir"`
	Size        int64       `json:"size"`
	Mode        fs.FileMode `json:"mode"`
	ModTime     time.Time   `json:"mod_time"`
	ContentHash string      `json:"content_hash,omitempty"`
	MimeType    string      `json:"mime_type,omitempty"`
}

// sameContent reports whether two entries describe the same state on disk.
func (e Entry) sameContent(other Entry) bool {
	return e.IsDir == other.IsDir &&
		e.Size == other.Size &&
		e.Mode == other.Mode &&
		e.ModTime.Equal(other.ModTime) &&
		e.ContentHash == other.ContentHash
}

// BuildEntry stats absPath and, for regular files, hashes the content and
// detects its MIME type. relPath is stored in slash form.
func BuildEntry(filesystem FileSystem, absPath, relPath string) (Entry, error) {
	info, err := filesystem.Stat(absPath)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Path:    filepath.ToSlash(relPath),
		IsDir:   info.IsDir(),
		Mode:    info.Mode(),
		ModTime: info.ModTime().UTC(),
	}
	if entry.IsDir || !info.Mode().IsRegular() {
		return entry, nil
	}
	entry.Size = info.Size()

	f, err := filesystem.Open(absPath)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Entry{}, err
	}
	head = head[:n]

	h := md5.New()
	h.Write(head)
	if _, err := io.Copy(h, f); err != nil {
		return Entry{}, err
	}

	entry.ContentHash = hex.EncodeToString(h.Sum(nil))
	entry.MimeType = mimetype.Detect(head).String()
	return entry, nil
}
