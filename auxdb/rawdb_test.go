package auxdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
)

func TestRawDBPutGetCode(t *testing.T) {
	db := NewRawDB(NewMemoryStore())
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}

	hash, err := db.PutCode(code)
	require.NoError(t, err)

	got, err := db.GetCode(hash)
	require.NoError(t, err)
	require.Equal(t, code, got)
}

func TestRawDBGetCodeMissing(t *testing.T) {
	db := NewRawDB(NewMemoryStore())
	_, err := db.GetCode(common.HexToHash("0xabcd"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRawDBPutGetRoot(t *testing.T) {
	db := NewRawDB(NewMemoryStore())
	root := common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	require.NoError(t, db.PutRoot(root, 42))

	offset, err := db.GetRoot(root)
	require.NoError(t, err)
	require.Equal(t, int64(42), offset)
}

func TestRawDBPutGetBlockHash(t *testing.T) {
	db := NewRawDB(NewMemoryStore())
	hash := common.HexToHash("0x1234")

	require.NoError(t, db.PutBlockHash(7, hash))

	got, err := db.GetBlockHash(7)
	require.NoError(t, err)
	require.Equal(t, hash, got)
}

func TestRawDBBlockHashMissing(t *testing.T) {
	db := NewRawDB(NewMemoryStore())
	_, err := db.GetBlockHash(999)
	require.ErrorIs(t, err, ErrNotFound)
}
