// Package repository persists cluster snapshots. One snapshot file and one
// known_hosts file live per cluster name under the storage directory; the
// snapshot encoding is chosen when the snapshot is first created and kept for
// its lifetime.
package repository

import (
	"errors"
	"fmt"
)

// ErrClusterNotFound is returned when no snapshot exists for a name.
var ErrClusterNotFound = errors.New("cluster not found")

// ErrClusterExists guards cluster name uniqueness on creation and import.
var ErrClusterExists = errors.New("cluster already exists")

// ErrClusterLocked signals a concurrent lifecycle command holding the
// advisory lock for the same cluster name.
var ErrClusterLocked = errors.New("cluster is locked by another command")

// ErrInvalidName rejects cluster names that would resolve outside the
// storage directory once joined into a file path.
var ErrInvalidName = errors.New("invalid cluster name")

// ReadError wraps a corrupted or undecodable snapshot. It is always fatal: a
// cluster the system cannot fully describe cannot be safely torn down, so no
// partially populated cluster is ever returned.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read snapshot of cluster '%s': %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
