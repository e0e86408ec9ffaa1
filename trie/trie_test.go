package trie

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaiminpan/fftrie/nibbles"
	"github.com/jaiminpan/fftrie/node"
	"github.com/jaiminpan/fftrie/store"
)

func mustDecodeHash(t *testing.T, s string) [32]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, 32)
	var out [32]byte
	copy(out[:], b)
	return out
}

func TestEmptyTrieRootHash(t *testing.T) {
	tr := New(store.NewMemoryStore())
	got, err := tr.RootHash()
	require.NoError(t, err)
	require.Equal(t, node.EmptyRootHash, got)
}

func TestCommitEmptyTrieFails(t *testing.T) {
	tr := New(store.NewMemoryStore())
	_, err := tr.Commit()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetOnEmptyTrie(t *testing.T) {
	tr := New(store.NewMemoryStore())
	_, err := tr.Get([]byte("dog"))
	require.ErrorIs(t, err, ErrNotFound)
}

var classicEntries = [][2]string{
	{"do", "verb"},
	{"horse", "stallion"},
	{"doge", "coin"},
	{"dog", "puppy"},
}

const classicRootHash = "5991bb8c6514148a29db676a14ac506cd2cd5775ace63c30a4fe457715e9ac84"

func TestClassicInsertRootHashAndGets(t *testing.T) {
	tr := New(store.NewMemoryStore())
	for _, e := range classicEntries {
		require.NoError(t, tr.Insert([]byte(e[0]), []byte(e[1])))
	}

	got, err := tr.RootHash()
	require.NoError(t, err)
	require.Equal(t, mustDecodeHash(t, classicRootHash), got)

	for _, e := range classicEntries {
		value, err := tr.Get([]byte(e[0]))
		require.NoError(t, err)
		require.Equal(t, e[1], string(value))
	}

	_, err = tr.Get([]byte("dogs"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClassicInsertOrderIndependence(t *testing.T) {
	want := mustDecodeHash(t, classicRootHash)

	permute(len(classicEntries), func(order []int) {
		tr := New(store.NewMemoryStore())
		for _, idx := range order {
			e := classicEntries[idx]
			require.NoError(t, tr.Insert([]byte(e[0]), []byte(e[1])))
		}
		got, err := tr.RootHash()
		require.NoError(t, err)
		require.Equal(t, want, got, "order %v produced a different root hash", order)
	})
}

// permute calls visit once for every permutation of [0, n), via Heap's
// algorithm.
func permute(n int, visit func(order []int)) {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	var helper func(k int)
	helper = func(k int) {
		if k == 1 {
			cp := append([]int(nil), order...)
			visit(cp)
			return
		}
		for i := 0; i < k; i++ {
			helper(k - 1)
			if k%2 == 0 {
				order[i], order[k-1] = order[k-1], order[i]
			} else {
				order[0], order[k-1] = order[k-1], order[0]
			}
		}
	}
	helper(n)
}

func TestSingleLeafRootHashMatchesManualEncoding(t *testing.T) {
	tr := New(store.NewMemoryStore())
	require.NoError(t, tr.Insert([]byte("do"), []byte("verb")))

	got, err := tr.RootHash()
	require.NoError(t, err)

	leaf := node.NewLeaf(nibbles.FromBytes([]byte("do")), []byte("verb"))
	encoded, err := node.Encode(leaf, nil)
	require.NoError(t, err)

	want := node.RootImage(node.FinalizeImage(encoded))
	require.Equal(t, want, got)
}

func TestCommitThenReopenPreservesReads(t *testing.T) {
	s := store.NewMemoryStore()
	tr := New(s)
	for _, e := range classicEntries {
		require.NoError(t, tr.Insert([]byte(e[0]), []byte(e[1])))
	}

	result, err := tr.Commit()
	require.NoError(t, err)
	require.Equal(t, mustDecodeHash(t, classicRootHash), result.RootHash)

	reopened, err := Open(s, result.RootOffset)
	require.NoError(t, err)

	for _, e := range classicEntries {
		value, err := reopened.Get([]byte(e[0]))
		require.NoError(t, err)
		require.Equal(t, e[1], string(value))
	}

	got, err := reopened.RootHash()
	require.NoError(t, err)
	require.Equal(t, result.RootHash, got)
}

func TestOverwriteExistingKey(t *testing.T) {
	tr := New(store.NewMemoryStore())
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("hound")))

	value, err := tr.Get([]byte("dog"))
	require.NoError(t, err)
	require.Equal(t, "hound", string(value))
}

// TestEmptyValueBranchTerminatorIsNotNotFound pins spec §4.1's "empty
// value is allowed and is stored as an empty byte sequence, distinguishable
// from 'not present' only by get": inserting ("do", "") and then ("dog",
// "x") forces "do" to terminate at a branch rather than a leaf, and that
// branch's terminator must still read back as present.
func TestEmptyValueBranchTerminatorIsNotNotFound(t *testing.T) {
	tr := New(store.NewMemoryStore())
	require.NoError(t, tr.Insert([]byte("do"), []byte{}))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("x")))

	value, err := tr.Get([]byte("do"))
	require.NoError(t, err)
	require.Equal(t, []byte{}, value)

	value, err = tr.Get([]byte("dog"))
	require.NoError(t, err)
	require.Equal(t, "x", string(value))

	_, err = tr.Get([]byte("d"))
	require.ErrorIs(t, err, ErrNotFound)
}

// TestEmptyValueBranchTerminatorSurvivesCommit is the same scenario through
// a commit/reopen cycle, exercising the on-disk HasValue framing.
func TestEmptyValueBranchTerminatorSurvivesCommit(t *testing.T) {
	s := store.NewMemoryStore()
	tr := New(s)
	require.NoError(t, tr.Insert([]byte("do"), []byte{}))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("x")))

	result, err := tr.Commit()
	require.NoError(t, err)

	reopened, err := Open(s, result.RootOffset)
	require.NoError(t, err)

	value, err := reopened.Get([]byte("do"))
	require.NoError(t, err)
	require.Equal(t, []byte{}, value)
}

func TestCommitTwiceAfterFurtherInsert(t *testing.T) {
	s := store.NewMemoryStore()
	tr := New(s)
	for _, e := range classicEntries[:2] {
		require.NoError(t, tr.Insert([]byte(e[0]), []byte(e[1])))
	}
	first, err := tr.Commit()
	require.NoError(t, err)

	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	second, err := tr.Commit()
	require.NoError(t, err)
	require.NotEqual(t, first.RootHash, second.RootHash)
}

// TestManyRandomKeysRoundTrip is a scaled-down stand-in for a much larger
// bulk-load soak test: it inserts a batch of pseudo-random 32-byte keys
// mapped to a fixed value, commits, reopens, and spot-checks a sample of
// the keys plus one absent key.
func TestManyRandomKeysRoundTrip(t *testing.T) {
	const keyCount = 500
	value := []byte("0123456789012345678901234567890123456789012345678901234567890123456789")

	rng := rand.New(rand.NewSource(1))
	keys := make([][]byte, keyCount)
	for i := range keys {
		k := make([]byte, 32)
		_, err := rng.Read(k)
		require.NoError(t, err)
		keys[i] = k
	}

	s := store.NewMemoryStore()
	tr := New(s)
	for _, k := range keys {
		require.NoError(t, tr.Insert(k, value))
	}

	result, err := tr.Commit()
	require.NoError(t, err)

	reopened, err := Open(s, result.RootOffset)
	require.NoError(t, err)

	for i := 0; i < keyCount; i += 8 {
		got, err := reopened.Get(keys[i])
		require.NoError(t, err)
		require.Equal(t, value, got)
	}

	absent := make([]byte, 32)
	for i := range absent {
		absent[i] = 0xFF
	}
	_, err = reopened.Get(absent)
	require.ErrorIs(t, err, ErrNotFound)
}
