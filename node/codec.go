package node

import (
	"encoding/binary"
	"fmt"

	"github.com/jaiminpan/fftrie/nibbles"
)

// Node tags for the on-disk framing (spec §4.7).
const (
	tagBranch    byte = 0
	tagLeaf      byte = 1
	tagExtension byte = 2
)

// CorruptData reports a framing or tag-byte error while decoding a node
// record read back from the backing store.
type CorruptData struct {
	Reason string
}

func (e *CorruptData) Error() string { return fmt.Sprintf("corrupt node record: %s", e.Reason) }

// EncodeDisk serializes n into the payload format the file store frames
// with a 2-byte length prefix: a 1-byte tag, the variant's fields, and a
// trailing 32-byte hash. The trailing hash is always the full Keccak-256
// digest (see DiskImage) even when the node's in-memory image is a short
// inline RLP encoding — on-disk hashes are always exactly 32 bytes.
//
// n must already be hashed (Meta.Hash set); encoding a node with no cached
// image is an invariant violation, since commit always hashes before it
// persists (spec §4.4).
func EncodeDisk(n Node) ([]byte, error) {
	image := Hash(n)
	if image == nil {
		Panic("encoding node with no cached hash")
	}

	var buf []byte
	switch t := n.(type) {
	case *Branch:
		buf = make([]byte, 0, 1+16*8+1+2+len(t.Value))
		buf = append(buf, tagBranch)
		for _, c := range t.Children {
			if c < 0 {
				Panic("dirty child id %d reached disk encoding", c)
			}
			buf = appendUint64(buf, uint64(c))
		}
		if t.HasValue {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = appendUint16(buf, uint16(len(t.Value)))
		buf = append(buf, t.Value...)
	case *Leaf:
		buf = make([]byte, 0, 2+len(t.Path)+2+len(t.Value))
		buf = append(buf, tagLeaf)
		buf = append(buf, byte(len(t.Path)))
		buf = append(buf, t.Path.RawBytes()...)
		buf = appendUint16(buf, uint16(len(t.Value)))
		buf = append(buf, t.Value...)
	case *Extension:
		if t.Child < 0 {
			Panic("dirty child id %d reached disk encoding", t.Child)
		}
		buf = make([]byte, 0, 2+len(t.Path)+8)
		buf = append(buf, tagExtension)
		buf = append(buf, byte(len(t.Path)))
		buf = append(buf, t.Path.RawBytes()...)
		buf = appendUint64(buf, uint64(t.Child))
	default:
		Panic("unknown node type %T", n)
	}

	digest := DiskImage(image)
	buf = append(buf, digest[:]...)
	return buf, nil
}

// DecodeDisk parses a node record payload (without its 2-byte length
// prefix). Nodes decoded this way are clean and committed, with their
// memoized hash populated from the trailing 32 bytes (spec §3's lifecycle:
// "nodes loaded from the backing store: dirty=false, committed=true").
func DecodeDisk(buf []byte) (Node, error) {
	if len(buf) < 1+32 {
		return nil, &CorruptData{Reason: "record shorter than tag+hash"}
	}
	tag := buf[0]
	n := buf[1 : len(buf)-32]
	hash := append([]byte(nil), buf[len(buf)-32:]...)

	var result Node
	switch tag {
	case tagBranch:
		if len(n) < 16*8+1+2 {
			return nil, &CorruptData{Reason: "branch record too short"}
		}
		b := &Branch{}
		off := 0
		for i := 0; i < 16; i++ {
			b.Children[i] = ID(binary.BigEndian.Uint64(n[off : off+8]))
			off += 8
		}
		b.HasValue = n[off] != 0
		off++
		valLen := int(binary.BigEndian.Uint16(n[off : off+2]))
		off += 2
		if valLen > 0 {
			if off+valLen > len(n) {
				return nil, &CorruptData{Reason: "branch value length overruns record"}
			}
			b.Value = append([]byte(nil), n[off:off+valLen]...)
		} else if b.HasValue {
			b.Value = []byte{}
		}
		result = b
	case tagLeaf:
		if len(n) < 1 {
			return nil, &CorruptData{Reason: "leaf record too short"}
		}
		pathLen := int(n[0])
		off := 1
		if off+pathLen+2 > len(n) {
			return nil, &CorruptData{Reason: "leaf path overruns record"}
		}
		path := nibbles.FromRaw(n[off : off+pathLen])
		off += pathLen
		valLen := int(binary.BigEndian.Uint16(n[off : off+2]))
		off += 2
		if off+valLen > len(n) {
			return nil, &CorruptData{Reason: "leaf value overruns record"}
		}
		result = &Leaf{Path: path, Value: append([]byte(nil), n[off:off+valLen]...)}
	case tagExtension:
		if len(n) < 1 {
			return nil, &CorruptData{Reason: "extension record too short"}
		}
		pathLen := int(n[0])
		off := 1
		if off+pathLen+8 > len(n) {
			return nil, &CorruptData{Reason: "extension record overruns buffer"}
		}
		path := nibbles.FromRaw(n[off : off+pathLen])
		off += pathLen
		child := ID(binary.BigEndian.Uint64(n[off : off+8]))
		result = &Extension{Path: path, Child: child}
	default:
		return nil, &CorruptData{Reason: fmt.Sprintf("invalid node tag %d", tag)}
	}

	SetHash(result, hash)
	SetCommitted(result, true)
	return result, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}
