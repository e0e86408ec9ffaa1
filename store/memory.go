package store

import (
	"github.com/jaiminpan/fftrie/node"
)

// MemoryStore is an in-process, ordered node store with no persistence —
// used by tests and by any caller that wants trie semantics without a file
// on disk. Offsets start at 1, matching the file store, since 0 is reserved
// for the null child.
type MemoryStore struct {
	nodes []node.Node
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(offset int64) (node.Node, error) {
	idx := offset - 1
	if idx < 0 || idx >= int64(len(s.nodes)) {
		return nil, ErrNotFound
	}
	return s.nodes[idx], nil
}

// Put implements Store. It appends n and returns the 1-based offset it was
// stored at.
func (s *MemoryStore) Put(n node.Node) (int64, error) {
	s.nodes = append(s.nodes, n)
	return int64(len(s.nodes)), nil
}

// Flush is a no-op: MemoryStore has no buffering to drain.
func (s *MemoryStore) Flush() error { return nil }
