// Package acmlock keeps two processes on one workstation from opening the
// same ACM mirror at the same time.
package acmlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("acm is open in another process")

// Locker is an advisory file lock on <dir>/<ACM>.lock.
type Locker struct {
	path string
	lock *flock.Flock
}

// New returns a Locker for the lock file at path. Nothing is locked yet.
func New(path string) *Locker {
	return &Locker{path: path, lock: flock.New(path)}
}

// ForACM returns the Locker guarding acm's mirror inside localDir.
func ForACM(localDir, acm string) *Locker {
	return New(filepath.Join(localDir, acm+".lock"))
}

// Path returns the lock file location.
func (l *Locker) Path() string { return l.path }

// TryLock acquires the lock without blocking. It returns ErrLocked when
// another process already holds it.
func (l *Locker) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, l.path)
	}
	return nil
}

// Locked reports whether this Locker currently holds the lock.
func (l *Locker) Locked() bool {
	return l.lock.Locked()
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *Locker) Unlock() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
