package revision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"acmsync/internal/fileutil"
)

// DirStore keeps revisions in <root>/<ACM>/db<N>.zip. The root is normally a
// Dropbox-synced folder shared by every workstation of a program.
type DirStore struct {
	root string
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates a DirStore rooted at root.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Root returns the shared directory backing the store.
func (s *DirStore) Root() string { return s.root }

func (s *DirStore) acmDir(acm string) string {
	return filepath.Join(s.root, acm)
}

// List returns the revision filenames of acm in ascending order.
func (s *DirStore) List(ctx context.Context, acm string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.acmDir(acm))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", acm, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return Sorted(names), nil
}

// Open returns a reader for the named revision.
func (s *DirStore) Open(ctx context.Context, acm, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.acmDir(acm), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, acm, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", acm, name, err)
	}
	return f, nil
}

// Put writes a new revision. Existing revisions are never replaced.
func (s *DirStore) Put(ctx context.Context, acm, name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.acmDir(acm), name)
	if fileutil.Exists(target) {
		return fmt.Errorf("%w: %s/%s", ErrExists, acm, name)
	}
	err := fileutil.WriteExclusive(target, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s/%s", ErrExists, acm, name)
	}
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", acm, name, err)
	}
	return nil
}

// Delete removes a revision. Deleting a missing revision is not an error.
func (s *DirStore) Delete(ctx context.Context, acm, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.acmDir(acm), name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s/%s: %w", acm, name, err)
	}
	return nil
}
