package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// InstanceLock guards a data directory so only one server writes its tokens and content files.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// AcquireInstanceLock takes a non-blocking exclusive lock on <dir>/homeboard.lock.
//
// Returns [ErrLocked] when another process already holds it.
func AcquireInstanceLock(dir string) (*InstanceLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dir, "homeboard.lock")
	lock := flock.New(path)

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return &InstanceLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release unlocks the data directory.
func (l *InstanceLock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
