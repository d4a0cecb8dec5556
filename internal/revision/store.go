package revision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"acmsync/internal/config"
	"acmsync/internal/logging"
)

var (
	// ErrNotFound indicates the requested revision is not in the store.
	ErrNotFound = errors.New("revision not found")
	// ErrExists indicates an attempt to write a revision that already exists.
	ErrExists = errors.New("revision already exists")
	// ErrNotRevision indicates a filename that is not of the form db<N>.zip.
	ErrNotRevision = errors.New("not a revision filename")
)

// Store keeps the zipped revisions of every ACM. Names passed to Open, Put and
// Delete must satisfy ParseName.
type Store interface {
	// List returns the revision filenames of acm in ascending order. An ACM
	// with no revisions yields an empty list, not an error.
	List(ctx context.Context, acm string) ([]string, error)
	Open(ctx context.Context, acm, name string) (io.ReadCloser, error)
	Put(ctx context.Context, acm, name string, r io.Reader) error
	Delete(ctx context.Context, acm, name string) error
}

// Current returns the latest revision name of acm, or "" when there is none.
func Current(ctx context.Context, store Store, acm string) (string, error) {
	names, err := store.List(ctx, acm)
	if err != nil {
		return "", err
	}
	name, _ := Latest(names)
	return name, nil
}

// Prune deletes the oldest revisions of acm so at most keep remain. keep <= 0
// disables pruning. It returns the names that were deleted.
func Prune(ctx context.Context, store Store, acm string, keep int, logger *slog.Logger) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	names, err := store.List(ctx, acm)
	if err != nil {
		return nil, err
	}
	names = Sorted(names)
	if len(names) <= keep {
		return nil, nil
	}
	doomed := names[:len(names)-keep]
	deleted := make([]string, 0, len(doomed))
	for _, name := range doomed {
		if err := store.Delete(ctx, acm, name); err != nil {
			return deleted, fmt.Errorf("prune %s/%s: %w", acm, name, err)
		}
		deleted = append(deleted, name)
	}
	if logger != nil {
		logger.Info("pruned old revisions",
			logging.String(logging.FieldACM, acm),
			logging.Int("deleted", len(deleted)),
			logging.Int("kept", keep),
		)
	}
	return deleted, nil
}

// NewFromConfig builds the store selected by storage.backend.
func NewFromConfig(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendDir:
		return NewDirStore(cfg.Paths.SharedDir), nil
	case config.StorageBackendS3:
		return NewS3StoreFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func checkName(name string) error {
	if _, ok := ParseName(name); !ok {
		return fmt.Errorf("%w: %q", ErrNotRevision, name)
	}
	return nil
}
