package pathfs

import (
	"io"
	"os"
)

// fsCopy copies the contents of from to to, creating or truncating to, and
// copies the permission bits of from onto to.
func fsCopy(from, to Path) error {
	if sameFile(from, to) {
		return &Error{Kind: KindInvalidInput, Op: "copy", Path: from, Dest: to, Err: errSameFile}
	}
	if err := copyFile(string(from), string(to)); err != nil {
		return ioError2("copy", from, to, err)
	}
	return nil
}

// sameFile reports whether from and to name the same existing file, which a
// truncating copy would wipe.
func sameFile(from, to Path) bool {
	fromInfo, err := os.Stat(string(from))
	if err != nil {
		return false
	}
	toInfo, err := os.Stat(string(to))
	return err == nil && os.SameFile(fromInfo, toInfo)
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	// OpenFile only applies the mode on creation and is subject to umask.
	return os.Chmod(to, info.Mode().Perm())
}

func fsRename(from, to Path) error {
	if err := os.Rename(string(from), string(to)); err != nil {
		return ioError2("rename", from, to, err)
	}
	return nil
}

func fsRemoveDirAll(path Path) error {
	if err := os.RemoveAll(string(path)); err != nil {
		return ioError("remove", path, err)
	}
	return nil
}

func fsRemoveFile(path Path) error {
	if err := os.Remove(string(path)); err != nil {
		return ioError("remove", path, err)
	}
	return nil
}

func fsCreateDir(path Path) error {
	if err := os.Mkdir(string(path), 0o755); err != nil {
		return ioError("create directory", path, err)
	}
	return nil
}

func fsCreateDirAll(path Path) error {
	if err := os.MkdirAll(string(path), 0o755); err != nil {
		return ioError("create directories for", path, err)
	}
	return nil
}

func fsRead(path Path) ([]byte, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, ioError("read", path, err)
	}
	return data, nil
}

func fsWrite(path Path, data []byte) error {
	if err := os.WriteFile(string(path), data, 0o644); err != nil {
		return ioError("write to", path, err)
	}
	return nil
}
