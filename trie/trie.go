// Package trie implements the persistent Merkle-Patricia trie engine: the
// insert state machine, the hashing traversal, and the post-order commit
// that flushes the dirty overlay to a backing store.Store.
package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/jaiminpan/fftrie/internal/metrics"
	"github.com/jaiminpan/fftrie/nibbles"
	"github.com/jaiminpan/fftrie/node"
	"github.com/jaiminpan/fftrie/store"
)

// ErrNotFound is returned by Get when the key isn't present, and by Commit
// when called on a trie with no root.
var ErrNotFound = errors.New("trie: not found")

// Trie is a Merkle-Patricia trie sitting on top of a store.Store. Inserts
// are staged in an in-memory dirty overlay; nothing touches the backing
// store until Commit. A Trie is not safe for concurrent use.
type Trie struct {
	root    node.ID
	hasRoot bool

	overlay map[node.ID]node.Node
	lastID  node.ID

	store store.Store
}

// New creates an empty trie backed by s.
func New(s store.Store) *Trie {
	return &Trie{
		overlay: make(map[node.ID]node.Node),
		lastID:  -100,
		store:   s,
	}
}

// Open reopens a previously committed trie at rootOffset. rootOffset of 0
// denotes an empty trie (equivalent to New).
func Open(s store.Store, rootOffset int64) (*Trie, error) {
	t := New(s)
	if rootOffset < 0 {
		return nil, fmt.Errorf("trie: root offset must not be negative, got %d", rootOffset)
	}
	if rootOffset != 0 {
		t.root = node.ID(rootOffset)
		t.hasRoot = true
	}
	return t, nil
}

// intern stages n in the dirty overlay under a fresh negative id, resetting
// its metadata to the freshly-interned state regardless of what it carried
// in from a clone.
func (t *Trie) intern(n node.Node) node.ID {
	node.ResetForIntern(n)
	id := t.lastID
	t.overlay[id] = n
	t.lastID--
	return id
}

// getNode resolves id to its node, consulting the dirty overlay for
// negative ids and the backing store otherwise.
func (t *Trie) getNode(id node.ID) (node.Node, error) {
	if id.IsNull() {
		node.Panic("getNode called with the null id")
	}
	if id.IsDirty() {
		n, ok := t.overlay[id]
		if !ok {
			node.Panic("dirty id %d missing from overlay", id)
		}
		return n, nil
	}
	return t.store.Get(int64(id))
}

func cloneOf(n node.Node) node.Node {
	switch v := n.(type) {
	case *node.Leaf:
		return v.Clone()
	case *node.Extension:
		return v.Clone()
	case *node.Branch:
		return v.Clone()
	default:
		node.Panic("cloneOf: unknown node type %T", n)
		return nil
	}
}

// Insert adds or overwrites the value for key. It never touches the
// backing store directly; the mutation lives in the overlay until Commit.
func (t *Trie) Insert(key, value []byte) error {
	path := nibbles.FromBytes(key)

	if !t.hasRoot {
		t.root = t.intern(node.NewLeaf(path, value))
		t.hasRoot = true
		return nil
	}

	if t.root.IsStored() {
		clean, err := t.getNode(t.root)
		if err != nil {
			return err
		}
		t.root = t.intern(cloneOf(clean))
	}

	current := t.root
	for {
		n, err := t.getNode(current)
		if err != nil {
			return err
		}
		node.SetDirty(n, true)
		node.SetCommitted(n, false)

		switch cur := n.(type) {
		case *node.Leaf:
			return t.insertIntoLeaf(current, cur, path, value)

		case *node.Extension:
			next, nextPath, done, err := t.insertIntoExtension(current, cur, path, value)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			current, path = next, nextPath

		case *node.Branch:
			next, nextPath, done, err := t.insertIntoBranch(current, cur, path, value)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			current, path = next, nextPath

		default:
			node.Panic("insert: unknown node type %T", n)
		}
	}
}

// insertIntoLeaf handles the Leaf case of the insert state machine (spec
// §4.2): either overwrite in place, or split the leaf into a branch (with
// an enclosing extension if a non-empty prefix is still shared).
func (t *Trie) insertIntoLeaf(id node.ID, leaf *node.Leaf, path nibbles.Path, value []byte) error {
	shared := leaf.Path.Intersection(path)
	s := shared.Len()

	if s == leaf.Path.Len() && s == path.Len() {
		leaf.Value = append([]byte(nil), value...)
		t.overlay[id] = leaf
		return nil
	}

	branch := node.NewBranch()
	switch {
	case s == path.Len() && s == leaf.Path.Len():
		node.Panic("unreachable: full match already handled")
	case s == path.Len():
		branch.Value = append([]byte(nil), value...)
		branch.HasValue = true
	case s == leaf.Path.Len():
		branch.Value = append([]byte(nil), leaf.Value...)
		branch.HasValue = true
	}

	if s < leaf.Path.Len() {
		n := leaf.Path.At(s)
		branch.Children[n] = t.intern(node.NewLeaf(leaf.Path.SliceFrom(s+1), leaf.Value))
	}
	if s < path.Len() {
		n := path.At(s)
		branch.Children[n] = t.intern(node.NewLeaf(path.SliceFrom(s+1), value))
	}

	if s > 0 {
		branchID := t.intern(branch)
		t.overlay[id] = node.NewExtension(leaf.Path.SliceTo(s), branchID)
	} else {
		t.overlay[id] = branch
	}
	return nil
}

// insertIntoExtension handles the Extension case. A full-prefix match walks
// through (cloning the child into the overlay so the walk can continue
// mutating it); a partial match splits the extension into a branch.
func (t *Trie) insertIntoExtension(id node.ID, ext *node.Extension, path nibbles.Path, value []byte) (next node.ID, nextPath nibbles.Path, done bool, err error) {
	shared := ext.Path.Intersection(path)
	s := shared.Len()

	if s == ext.Path.Len() {
		child, err := t.getNode(ext.Child)
		if err != nil {
			return 0, nil, false, err
		}
		newChild := t.intern(cloneOf(child))
		ext.Child = newChild
		t.overlay[id] = ext
		return newChild, path.SliceFrom(s), false, nil
	}

	matched := ext.Path.SliceTo(s)
	branchNibble := ext.Path.At(s)
	unmatched := ext.Path.SliceFrom(s + 1)

	branch := node.NewBranch()
	if unmatched.Len() == 0 {
		branch.Children[branchNibble] = ext.Child
	} else {
		branch.Children[branchNibble] = t.intern(node.NewExtension(unmatched, ext.Child))
	}

	switch {
	case s < path.Len():
		n := path.At(s)
		branch.Children[n] = t.intern(node.NewLeaf(path.SliceFrom(s+1), value))
	case s == path.Len():
		branch.Value = append([]byte(nil), value...)
		branch.HasValue = true
	default:
		node.Panic("extension split: shared prefix longer than inserted path")
	}

	if matched.Len() == 0 {
		t.overlay[id] = branch
	} else {
		branchID := t.intern(branch)
		t.overlay[id] = node.NewExtension(matched, branchID)
	}
	return 0, nil, true, nil
}

// insertIntoBranch handles the Branch case: terminate here if the path is
// exhausted, otherwise descend (cloning a clean child first) into the
// nibble-indexed slot.
func (t *Trie) insertIntoBranch(id node.ID, branch *node.Branch, path nibbles.Path, value []byte) (next node.ID, nextPath nibbles.Path, done bool, err error) {
	if path.Len() == 0 {
		branch.Value = append([]byte(nil), value...)
		branch.HasValue = true
		t.overlay[id] = branch
		return 0, nil, true, nil
	}

	n := path.At(0)
	rest := path.SliceFrom(1)

	switch {
	case branch.Children[n].IsNull():
		branch.Children[n] = t.intern(node.NewLeaf(rest, value))
		t.overlay[id] = branch
		return 0, nil, true, nil
	case branch.Children[n].IsDirty():
		return branch.Children[n], rest, false, nil
	default:
		child, err := t.getNode(branch.Children[n])
		if err != nil {
			return 0, nil, false, err
		}
		newChild := t.intern(cloneOf(child))
		branch.Children[n] = newChild
		t.overlay[id] = branch
		return newChild, rest, false, nil
	}
}

// Get looks up key's value. It returns ErrNotFound if the key isn't
// present, including when the trie is empty.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if !t.hasRoot {
		return nil, ErrNotFound
	}

	path := nibbles.FromBytes(key)
	current := t.root

	for {
		n, err := t.getNode(current)
		if err != nil {
			return nil, err
		}

		switch cur := n.(type) {
		case *node.Leaf:
			shared := cur.Path.Intersection(path)
			if shared.Len() == cur.Path.Len() && shared.Len() == path.Len() {
				return append([]byte{}, cur.Value...), nil
			}
			return nil, ErrNotFound

		case *node.Extension:
			shared := cur.Path.Intersection(path)
			if shared.Len() != cur.Path.Len() {
				return nil, ErrNotFound
			}
			current = cur.Child
			path = path.SliceFrom(shared.Len())

		case *node.Branch:
			if path.Len() == 0 {
				if !cur.HasValue {
					return nil, ErrNotFound
				}
				return append([]byte{}, cur.Value...), nil
			}
			n0 := path.At(0)
			if cur.Children[n0].IsNull() {
				return nil, ErrNotFound
			}
			current = cur.Children[n0]
			path = path.SliceFrom(1)

		default:
			node.Panic("get: unknown node type %T", n)
		}
	}
}

// RootHash returns the trie's current root hash, hashing any dirty nodes
// as needed (memoizing the result) but without writing anything to the
// backing store.
func (t *Trie) RootHash() ([32]byte, error) {
	if !t.hasRoot {
		return node.EmptyRootHash, nil
	}
	n, err := t.getNode(t.root)
	if err != nil {
		return [32]byte{}, err
	}
	image, err := t.hashNode(t.root, n)
	if err != nil {
		return [32]byte{}, err
	}
	return node.RootImage(image), nil
}

// hashNode returns n's RLP hashing image, recursing into children as
// needed and memoizing the result on n. Clean nodes short-circuit
// immediately on their cached image.
func (t *Trie) hashNode(id node.ID, n node.Node) ([]byte, error) {
	if !node.IsDirty(n) {
		image := node.Hash(n)
		if image == nil {
			node.Panic("clean node %d has no cached hash", id)
		}
		return image, nil
	}

	var childErr error
	childImage := func(childID node.ID) []byte {
		if childErr != nil || childID.IsNull() {
			return nil
		}
		childNode, err := t.getNode(childID)
		if err != nil {
			childErr = err
			return nil
		}
		image, err := t.hashNode(childID, childNode)
		if err != nil {
			childErr = err
			return nil
		}
		return image
	}

	encoded, err := node.Encode(n, childImage)
	if err != nil {
		return nil, err
	}
	if childErr != nil {
		return nil, childErr
	}

	image := node.FinalizeImage(encoded)
	node.SetHash(n, image)
	return image, nil
}

// CommitResult is the outcome of a successful Commit: the trie's root hash
// and the store offset the root node was written to.
type CommitResult struct {
	RootHash   [32]byte
	RootOffset int64
}

// Commit hashes the trie (if not already hashed), writes every dirty node
// to the backing store in post-order (children before parents), flushes
// the store, and clears the dirty overlay. It fails if the trie is empty.
func (t *Trie) Commit() (CommitResult, error) {
	if !t.hasRoot {
		return CommitResult{}, ErrNotFound
	}

	rootHash, err := t.RootHash()
	if err != nil {
		return CommitResult{}, err
	}

	if t.root.IsStored() {
		// Nothing is staged: the root is already persisted at this offset.
		return CommitResult{RootHash: rootHash, RootOffset: int64(t.root)}, nil
	}

	written := 0
	rootOffset, err := t.commitNode(t.root, &written)
	if err != nil {
		return CommitResult{}, err
	}

	if err := t.store.Flush(); err != nil {
		return CommitResult{}, &store.IoError{Op: "flush", Err: err}
	}

	metrics.CommitNodes.Observe(float64(written))
	log.Debug("trie commit", "nodes", written, "rootOffset", rootOffset, "rootHash", rootHash)

	t.root = node.ID(rootOffset)
	t.overlay = make(map[node.ID]node.Node)

	return CommitResult{RootHash: rootHash, RootOffset: rootOffset}, nil
}

// commitNode writes id's node to the store, first recursing into any
// dirty children so offsets are known before the parent is encoded.
func (t *Trie) commitNode(id node.ID, written *int) (int64, error) {
	if !id.IsDirty() {
		node.Panic("commitNode called on a non-dirty id %d", id)
	}
	n, ok := t.overlay[id]
	if !ok {
		node.Panic("dirty id %d missing from overlay during commit", id)
	}
	if node.IsDirty(n) {
		node.Panic("commitNode: node %d is still dirty; RootHash must run first", id)
	}
	if node.IsCommitted(n) {
		node.Panic("commitNode: node %d is already committed", id)
	}

	switch cur := n.(type) {
	case *node.Leaf:
		// no children to fix up

	case *node.Extension:
		if cur.Child.IsDirty() {
			offset, err := t.commitNode(cur.Child, written)
			if err != nil {
				return 0, err
			}
			cur.Child = node.ID(offset)
		}

	case *node.Branch:
		for i, c := range cur.Children {
			if c.IsDirty() {
				offset, err := t.commitNode(c, written)
				if err != nil {
					return 0, err
				}
				cur.Children[i] = node.ID(offset)
			}
		}

	default:
		node.Panic("commitNode: unknown node type %T", n)
	}

	offset, err := t.store.Put(n)
	if err != nil {
		return 0, err
	}
	node.SetCommitted(n, true)
	*written++
	return offset, nil
}
