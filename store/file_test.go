package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaiminpan/fftrie/node"
)

func TestFileStorePutFlushGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.db")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	defer s.Close()

	leaf := hashedLeaf([]byte("puppy"))
	offset, err := s.Put(leaf)
	require.NoError(t, err)

	// Not guaranteed visible before Flush.
	_, err = s.Get(offset)
	require.Error(t, err)

	require.NoError(t, s.Flush())

	got, err := s.Get(offset)
	require.NoError(t, err)
	gotLeaf, ok := got.(*node.Leaf)
	require.True(t, ok)
	require.Equal(t, []byte("puppy"), gotLeaf.Value)
	require.True(t, node.IsCommitted(gotLeaf))
	require.False(t, node.IsDirty(gotLeaf))
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.db")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	leaf := hashedLeaf([]byte("stallion"))
	offset, err := s.Put(leaf)
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(offset)
	require.NoError(t, err)
	gotLeaf := got.(*node.Leaf)
	require.Equal(t, []byte("stallion"), gotLeaf.Value)
}

func TestFileStoreFreshFileHasOnlyTheReservedByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.db")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, int64(1), s.diskSize)
	require.Equal(t, int64(1), s.memSize)
}

func TestFileStoreFirstOffsetIsOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.db")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	defer s.Close()

	offset, err := s.Put(hashedLeaf([]byte("verb")))
	require.NoError(t, err)
	require.Equal(t, int64(1), offset, "offset 0 is reserved for the null child")
}
