// Package nibbles implements the 4-bit path representation used to address
// keys inside a Merkle-Patricia trie, and Ethereum's hex-prefix encoding of
// those paths.
package nibbles

// Path is an ordered sequence of nibbles (values 0..15). Keys are converted
// to a Path by splitting each byte into its high then low nibble, so a Path
// is always twice the length of the byte string it was built from.
type Path []byte

// FromBytes splits a byte string into its nibble sequence, high nibble
// first.
func FromBytes(key []byte) Path {
	path := make(Path, 0, len(key)*2)
	for _, b := range key {
		path = append(path, b>>4, b&0x0F)
	}
	return path
}

// FromRaw wraps a slice of already-split nibble values (each 0..15) as a
// Path without re-splitting it. Used by the node codec when reading a raw
// nibble run back off disk.
func FromRaw(raw []byte) Path {
	path := make(Path, len(raw))
	copy(path, raw)
	return path
}

// Len returns the number of nibbles in the path.
func (p Path) Len() int {
	return len(p)
}

// At returns the nibble at position i.
func (p Path) At(i int) byte {
	return p[i]
}

// SliceTo returns the prefix of the path up to (not including) position n.
func (p Path) SliceTo(n int) Path {
	return p[:n]
}

// SliceFrom returns the suffix of the path starting at position n.
func (p Path) SliceFrom(n int) Path {
	return p[n:]
}

// Intersection returns the longest common prefix of p and other, compared
// position by position. This is NOT a bitwise AND of the two nibble
// sequences — a prior implementation in the source material made that
// mistake, which silently corrupts the trie structure whenever two nibbles
// happen to AND to a third value that isn't equal to either operand.
func (p Path) Intersection(other Path) Path {
	n := len(p)
	if len(other) < n {
		n = len(other)
	}
	i := 0
	for i < n && p[i] == other[i] {
		i++
	}
	return p[:i]
}

// RawBytes returns the nibble values as a byte slice, one nibble per byte,
// unpacked — the form persisted by the Leaf/Extension on-disk framing.
func (p Path) RawBytes() []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

// PrefixedBytes produces the Ethereum hex-prefix (HP) encoding of the path:
// a two-bit header (leaf vs extension, odd vs even nibble count) folded into
// the first nibble, followed by the path nibbles, packed two-per-byte.
//
//   - Even nibble count: prefix is the two nibbles {0x0, 0x0}.
//   - Odd nibble count: prefix is the single nibble 0x1, which doubles as
//     the first packed byte's high nibble once combined with the first data
//     nibble below.
//   - If isLeaf, 0x2 is added to the header nibble, making the unused-nibble
//     value 0x0 (ext, even), 0x2 (leaf, even), 0x1 (ext, odd), 0x3 (leaf,
//     odd) — equivalently, +0x20 on the first output byte.
func (p Path) PrefixedBytes(isLeaf bool) []byte {
	var prefix []byte
	if len(p)%2 == 0 {
		prefix = []byte{0x00, 0x00}
	} else {
		prefix = []byte{0x01}
	}

	full := make([]byte, 0, len(prefix)+len(p))
	full = append(full, prefix...)
	full = append(full, p...)
	if isLeaf {
		full[0] += 0x02
	}

	out := make([]byte, len(full)/2)
	for i := 0; i < len(full); i += 2 {
		out[i/2] = full[i]<<4 | full[i+1]
	}
	return out
}
