// Package lockfile provides a coarse single-writer lock based on exclusive
// file creation. It guards the on-disk note and vector stores against a
// second writer process; it is not a reader/writer lock.
package lockfile

import (
	"fmt"
	"os"
	"time"
)

// DefaultTimeout is how long Acquire waits for a competing writer.
const DefaultTimeout = 5 * time.Second

const pollInterval = 50 * time.Millisecond

// Lock is a held lock file. Release must be called on every exit path.
type Lock struct {
	path string
}

// Acquire creates path exclusively, retrying until timeout. The file holds
// the owner's pid for debugging stale locks.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s held by another writer (timeout after %s)", path, timeout)
		}
		time.Sleep(pollInterval)
	}
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file %s: %w", l.path, err)
	}
	return nil
}
