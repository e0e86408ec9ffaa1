// Package store implements the trie's backing-store component: durable
// node persistence addressed by monotonically increasing positive offsets,
// with three variants — an in-memory vector for tests, an append-only
// memory-mapped file store, and a read-through caching wrapper.
package store

import (
	"errors"
	"fmt"

	"github.com/jaiminpan/fftrie/node"
)

// ErrNotFound is returned by Get when the requested offset has never been
// written (or, for the file store, has not yet been flushed).
var ErrNotFound = errors.New("store: node not found")

// IoError wraps an underlying I/O failure (file read/write/flush) so
// callers can distinguish it from corrupt-data and not-found conditions
// with errors.As, per spec §7.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// Store is the backing-store contract the trie engine consumes. Offsets are
// opaque positive integers assigned by Put; 0 is reserved for the null
// child and must never be passed to Get, nor returned by Put.
type Store interface {
	// Get reads back the node previously written at offset.
	Get(offset int64) (node.Node, error)
	// Put assigns the node the next offset in this store's monotonically
	// increasing sequence and returns it.
	Put(n node.Node) (int64, error)
	// Flush durably persists everything buffered by prior Put calls.
	Flush() error
}
