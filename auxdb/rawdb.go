package auxdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jaiminpan/fftrie/node"
)

// Key prefixes partitioning the three mappings this package keeps inside a
// single KeyValueStore namespace.
var (
	codePrefix      = []byte("c")
	rootPrefix      = []byte("r")
	blockHashPrefix = []byte("b")
)

// RawDB is the auxiliary collaborator a caller driving trie commits uses to
// record everything the trie engine itself has no business knowing about:
// the preimage of a contract's code hash, which store offset a given root
// hash was committed at, and the block-number-to-block-hash index. None of
// this is consulted by package trie; it exists for callers layering a
// blockchain-shaped state store on top of the trie engine.
type RawDB struct {
	kv KeyValueStore
}

// NewRawDB wraps kv as a RawDB.
func NewRawDB(kv KeyValueStore) *RawDB {
	return &RawDB{kv: kv}
}

// PutCode stores code under the Keccak-256 hash of its own bytes and
// returns that hash.
func (d *RawDB) PutCode(code []byte) (common.Hash, error) {
	hash := common.BytesToHash(node.Keccak256(code))
	if err := d.kv.Put(codeKey(hash), code); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// GetCode retrieves the code previously stored under hash.
func (d *RawDB) GetCode(hash common.Hash) ([]byte, error) {
	return d.kv.Get(codeKey(hash))
}

// PutRoot records that committing produced rootHash at offset.
func (d *RawDB) PutRoot(rootHash common.Hash, offset int64) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(offset))
	return d.kv.Put(rootKey(rootHash), v[:])
}

// GetRoot returns the store offset previously recorded for rootHash.
func (d *RawDB) GetRoot(rootHash common.Hash) (int64, error) {
	v, err := d.kv.Get(rootKey(rootHash))
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, &CorruptRecordError{Reason: "root offset record is not 8 bytes"}
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}

// PutBlockHash records the hash of block number.
func (d *RawDB) PutBlockHash(number uint64, hash common.Hash) error {
	return d.kv.Put(blockHashKey(number), hash.Bytes())
}

// GetBlockHash retrieves the hash previously recorded for block number.
func (d *RawDB) GetBlockHash(number uint64) (common.Hash, error) {
	v, err := d.kv.Get(blockHashKey(number))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(v), nil
}

// CorruptRecordError reports a record whose shape doesn't match what this
// package wrote, analogous to store.CorruptDataErr for the trie's own
// on-disk framing.
type CorruptRecordError struct {
	Reason string
}

func (e *CorruptRecordError) Error() string { return "auxdb: corrupt record: " + e.Reason }

func codeKey(hash common.Hash) []byte {
	return append(append([]byte(nil), codePrefix...), hash.Bytes()...)
}

func rootKey(hash common.Hash) []byte {
	return append(append([]byte(nil), rootPrefix...), hash.Bytes()...)
}

func blockHashKey(number uint64) []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], number)
	return append(append([]byte(nil), blockHashPrefix...), n[:]...)
}
