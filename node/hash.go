package node

import (
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes data with the pre-NIST Keccak-256 variant Ethereum uses,
// which differs from the standardized SHA3-256 in its padding. This must
// never be swapped for golang.org/x/crypto/sha3's NewLegacyKeccak256
// look-alike's standardized sibling — only the legacy variant produces
// Ethereum-compatible digests.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// EmptyRootHash is the fixed Keccak-256 of the RLP empty string, returned as
// the root hash of a trie with no entries.
var EmptyRootHash = mustHex("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

func mustHex(s string) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		panic("invalid hex digit")
	}
}

// childRef wraps a resolved child image for embedding in a parent's RLP
// list. A child whose own image is shorter than 32 bytes is already a
// complete, valid RLP item (its Leaf/Extension/Branch encoding) and is
// embedded as-is. A child whose image is the full 32-byte Keccak digest is
// wrapped as an ordinary RLP byte string, which for a 32-byte string is
// always the single length-prefix byte 0xA0 followed by the digest.
func childRef(image []byte) rlp.RawValue {
	if len(image) < 32 {
		return rlp.RawValue(image)
	}
	encoded, err := rlp.EncodeToBytes(image)
	if err != nil {
		// encoding a byte slice to an RLP string cannot fail.
		panic(err)
	}
	return rlp.RawValue(encoded)
}

// emptyRef is the RLP encoding of the empty string, used for a Branch's
// null child slots and absent terminator value.
var emptyRef = rlp.RawValue{0x80}

// Encode produces the RLP hashing encoding of n (spec §4.3). childImage
// resolves a child ID (Extension.Child, or a non-null Branch child slot) to
// that child's own memoized image — the caller is responsible for the
// depth-first traversal and memoization; this function is a pure function
// of one node's already-resolved children.
func Encode(n Node, childImage func(ID) []byte) ([]byte, error) {
	switch t := n.(type) {
	case *Leaf:
		return rlp.EncodeToBytes([]interface{}{
			t.Path.PrefixedBytes(true),
			t.Value,
		})
	case *Extension:
		return rlp.EncodeToBytes([]interface{}{
			t.Path.PrefixedBytes(false),
			childRef(childImage(t.Child)),
		})
	case *Branch:
		items := make([]interface{}, 17)
		for i := 0; i < 16; i++ {
			if t.Children[i].IsNull() {
				items[i] = emptyRef
			} else {
				items[i] = childRef(childImage(t.Children[i]))
			}
		}
		if t.HasValue {
			items[16] = t.Value
		} else {
			items[16] = emptyRef
		}
		return rlp.EncodeToBytes(items)
	default:
		Panic("unknown node type %T", n)
		return nil, nil
	}
}

// FinalizeImage applies the inline-or-hashed rule to a node's raw RLP
// encoding: encodings shorter than 32 bytes are their own image, everything
// else is replaced by its Keccak-256 digest.
func FinalizeImage(rlpEncoding []byte) []byte {
	if len(rlpEncoding) < 32 {
		return rlpEncoding
	}
	return Keccak256(rlpEncoding)
}

// RootImage applies the root-specific post-processing: the returned root
// hash is always exactly 32 bytes, so an inline (<32 byte) top-level image
// is hashed one more time.
func RootImage(image []byte) [32]byte {
	var out [32]byte
	if len(image) < 32 {
		copy(out[:], Keccak256(image))
		return out
	}
	copy(out[:], image)
	return out
}

// DiskImage normalizes a node's memoized image to the 32-byte digest always
// written to the backing store, recomputing the Keccak-256 digest when the
// in-memory image is a short inline RLP encoding. See SPEC_FULL.md's
// resolution of the on-disk hash width ambiguity: every record on disk
// carries a full 32-byte hash, never a short inline image.
func DiskImage(image []byte) [32]byte {
	var out [32]byte
	if len(image) == 32 {
		copy(out[:], image)
		return out
	}
	copy(out[:], Keccak256(image))
	return out
}
