// Package node defines the Merkle-Patricia trie's node model: the tagged
// Leaf/Extension/Branch variant, the per-node hash/dirty/committed metadata,
// the RLP hashing image, and the on-disk framing used to persist nodes.
package node

import (
	"fmt"

	"github.com/jaiminpan/fftrie/nibbles"
)

// ID addresses a node either in the backing store or in the trie's dirty
// overlay. Zero is the reserved null-child sentinel; positive values are
// opaque store offsets; negative values index the in-memory overlay and are
// allocated by a monotonically decreasing counter starting at -100.
type ID int64

// Null is the sentinel stored in an empty Branch child slot.
const Null ID = 0

// IsNull reports whether id is the empty-child sentinel.
func (id ID) IsNull() bool { return id == Null }

// IsDirty reports whether id addresses the overlay (a staged, uncommitted
// node) rather than the backing store.
func (id ID) IsDirty() bool { return id < Null }

// IsStored reports whether id addresses a positive, already-persisted
// offset in the backing store.
func (id ID) IsStored() bool { return id > Null }

// Meta carries the caching state every node variant embeds: the memoized
// hashing image, and the dirty/committed flags that drive the commit
// traversal in package trie.
//
// A freshly interned node is dirty and not committed, with no cached image.
// A node decoded off the backing store is clean and committed, with its
// image populated from the trailing on-disk hash.
type Meta struct {
	Hash      []byte // memoized RLP-or-Keccak image; nil until hashed
	Dirty     bool
	Committed bool
}

// NewMeta returns the metadata for a node that was just interned into the
// overlay: dirty, uncommitted, unhashed.
func NewMeta() Meta {
	return Meta{Dirty: true, Committed: false}
}

// Node is the tagged Leaf/Extension/Branch variant. Implementations are
// pointer types so that mutation during insert doesn't require threading a
// replacement value back through every caller.
type Node interface {
	meta() *Meta
}

// Hash returns the node's memoized hashing image, or nil if it hasn't been
// hashed since its last mutation.
func Hash(n Node) []byte { return n.meta().Hash }

// SetHash memoizes the node's hashing image and clears the dirty flag. This
// is the only way a node transitions from dirty to clean.
func SetHash(n Node, image []byte) {
	m := n.meta()
	m.Hash = image
	m.Dirty = false
}

// IsDirty reports whether the node has structural changes not yet reflected
// in its memoized hash.
func IsDirty(n Node) bool { return n.meta().Dirty }

// IsCommitted reports whether the node has already been written to the
// backing store in a prior generation.
func IsCommitted(n Node) bool { return n.meta().Committed }

// SetCommitted marks the node as persisted.
func SetCommitted(n Node, committed bool) { n.meta().Committed = committed }

// SetDirty forces the dirty flag, used when copy-on-write clones a node or
// when an insert mutates one in place.
func SetDirty(n Node, dirty bool) { n.meta().Dirty = dirty }

// ResetForIntern resets a node's metadata to the freshly-interned state:
// dirty, uncommitted, unhashed (spec §3's lifecycle). Used both for brand
// new nodes and for copy-on-write clones of a previously clean node, which
// must shed the clean node's cached hash and committed flag.
func ResetForIntern(n Node) {
	m := n.meta()
	m.Hash = nil
	m.Dirty = true
	m.Committed = false
}

// Leaf is a terminal node. Path is the remaining key suffix relative to the
// leaf's position in the trie (not the full key).
type Leaf struct {
	Path  nibbles.Path
	Value []byte
	Meta  Meta
}

func (n *Leaf) meta() *Meta { return &n.Meta }

// Clone returns a shallow copy of the leaf suitable for copy-on-write
// interning; Path and Value are not aliased with the original.
func (n *Leaf) Clone() *Leaf {
	c := *n
	c.Path = append(nibbles.Path(nil), n.Path...)
	c.Value = append([]byte(nil), n.Value...)
	return &c
}

// Extension is a shared-prefix shortcut. Its Child must always address a
// Branch — an Extension pointing at another Extension or a Leaf is an
// invariant violation that the insert state machine never produces.
type Extension struct {
	Path  nibbles.Path
	Child ID
	Meta  Meta
}

func (n *Extension) meta() *Meta { return &n.Meta }

// Clone returns a shallow copy suitable for copy-on-write interning.
func (n *Extension) Clone() *Extension {
	c := *n
	c.Path = append(nibbles.Path(nil), n.Path...)
	return &c
}

// Branch is a 16-way radix node. HasValue reports whether some key ends
// exactly at this branch's position in the trie; Value only holds that
// terminator value when HasValue is true. An empty value is a valid,
// present terminator and must be kept distinct from no terminator at all —
// a nil Value alone can't carry that distinction, since an empty and a nil
// byte slice are otherwise interchangeable.
type Branch struct {
	Children [16]ID
	Value    []byte
	HasValue bool
	Meta     Meta
}

func (n *Branch) meta() *Meta { return &n.Meta }

// Clone returns a shallow copy suitable for copy-on-write interning.
func (n *Branch) Clone() *Branch {
	c := *n
	c.Value = append([]byte(nil), n.Value...)
	return &c
}

// NewLeaf interns a fresh, dirty leaf.
func NewLeaf(path nibbles.Path, value []byte) *Leaf {
	return &Leaf{Path: path, Value: append([]byte(nil), value...), Meta: NewMeta()}
}

// NewExtension interns a fresh, dirty extension.
func NewExtension(path nibbles.Path, child ID) *Extension {
	return &Extension{Path: path, Child: child, Meta: NewMeta()}
}

// NewBranch interns a fresh, dirty, empty branch.
func NewBranch() *Branch {
	return &Branch{Meta: NewMeta()}
}

// InvariantViolation reports a condition the state machine proves can never
// happen (see spec §4.2, §4.4). Encountering one is a programmer error, not
// a runtime condition, and callers are expected to let it propagate as a
// panic rather than handle it as an ordinary error.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("trie invariant violated: %s", e.Reason)
}

// Panic raises an InvariantViolation. Called at the handful of points the
// state machine and the committer have proven unreachable.
func Panic(format string, args ...interface{}) {
	panic(&InvariantViolation{Reason: fmt.Sprintf(format, args...)})
}
