// Package fileutil holds small filesystem helpers shared by the revision
// store, the local mirror, and the SRN state file.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteAtomic(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic is WriteFileAtomic for streamed content. fill receives the temp
// file; the rename happens only when fill returns nil.
func WriteAtomic(path string, mode os.FileMode, fill func(io.Writer) error) error {
	return publish(path, mode, fill, func(tmpName string) error {
		if err := os.Rename(tmpName, path); err != nil {
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	})
}

// WriteExclusive is WriteAtomic that never replaces an existing file. The temp
// file is hard-linked into place, so of two concurrent writers exactly one
// wins and the other gets an error matching fs.ErrExist.
func WriteExclusive(path string, mode os.FileMode, fill func(io.Writer) error) error {
	return publish(path, mode, fill, func(tmpName string) error {
		if err := os.Link(tmpName, path); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%s: %w", path, fs.ErrExist)
			}
			return fmt.Errorf("link temp file: %w", err)
		}
		return nil
	})
}

func publish(path string, mode os.FileMode, fill func(io.Writer) error, place func(tmpName string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpName)
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return place(tmpName)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
