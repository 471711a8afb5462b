// Package lock enforces at-most-one sync per destination directory across
// process boundaries, using an advisory filesystem lock. The lock file is
// created once and never removed; only the lock itself is released, so
// seeing the file on disk is normal and not evidence of a stuck process.
//
// Advisory locks are not reliable over network filesystems (NFS and
// similar); destinations on network mounts are unsupported.
package lock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/TheMichaelB/dashsync/internal/models"
)

// FileName is the hidden lock file kept at the destination root.
const FileName = ".dashsync.lock"

// Lock is a held destination lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the exclusive destination lock without blocking. If another
// instance holds it, ErrAlreadyRunning is returned; overlapping scheduled
// invocations treat that as a quiet no-op, not a failure.
func Acquire(root string) (*Lock, error) {
	fl := flock.New(filepath.Join(root, FileName))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, models.ErrAlreadyRunning
	}

	return &Lock{fl: fl}, nil
}

// Release unlocks the destination. The lock file stays behind: another
// process may be about to lock it.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
