// Package mirror maintains the workstation-local unpacked copy of an ACM
// revision. A mirror is always rebuilt from a revision zip when an ACM is
// opened and re-zipped when changes are committed.
package mirror

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrUnsafePath reports a zip entry that would land outside the mirror.
var ErrUnsafePath = errors.New("zip entry escapes mirror directory")

// Unpack replaces dir with the contents of the zip read from src.
func Unpack(src io.Reader, dir string) error {
	spool, err := os.CreateTemp("", "acm-revision-*.zip")
	if err != nil {
		return fmt.Errorf("create revision spool: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()
	size, err := io.Copy(spool, src)
	if err != nil {
		return fmt.Errorf("spool revision: %w", err)
	}
	zr, err := zip.NewReader(spool, size)
	if err != nil {
		return fmt.Errorf("read revision zip: %w", err)
	}
	return extract(zr, dir)
}

func extract(zr *zip.Reader, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mirror: %w", err)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	for _, entry := range zr.File {
		target, err := entryPath(root, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", entry.Name, err)
			}
			continue
		}
		if err := extractFile(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func entryPath(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	target := filepath.Join(root, cleaned)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", entry.Name, err)
	}
	in, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer in.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", entry.Name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	if !entry.Modified.IsZero() {
		_ = os.Chtimes(target, entry.Modified, entry.Modified)
	}
	return nil
}

// Pack writes every regular file under dir to w as a zip archive. Entries use
// slash-separated paths relative to dir, in lexical order.
func Pack(dir string, w io.Writer) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk mirror: %w", err)
	}
	sort.Strings(files)

	zw := zip.NewWriter(w)
	for _, path := range files {
		if err := addFile(zw, dir, path); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, dir, path string) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate
	header.Modified = info.ModTime().UTC().Truncate(time.Second)

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", rel, err)
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("compress %s: %w", rel, err)
	}
	return nil
}

// Seed creates an empty mirror for a database that has no revisions yet.
func Seed(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mirror: %w", err)
	}
	return nil
}

// Remove deletes the mirror directory.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove mirror: %w", err)
	}
	return nil
}

// Exists reports whether dir holds a mirror.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
