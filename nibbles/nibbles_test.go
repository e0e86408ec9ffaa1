package nibbles

import (
	"bytes"
	"testing"
)

func TestFromBytes(t *testing.T) {
	path := FromBytes([]byte{0x12, 0xAB})
	want := Path{0x1, 0x2, 0xA, 0xB}
	if !bytes.Equal(path, want) {
		t.Fatalf("got %v want %v", path, want)
	}
}

func TestIntersectionFullMatch(t *testing.T) {
	a := Path{0x1, 0x2, 0x3}
	b := Path{0x1, 0x2, 0x3}
	got := a.Intersection(b)
	if got.Len() != 3 {
		t.Fatalf("expected full match, got %v", got)
	}
}

func TestIntersectionMismatchInMiddle(t *testing.T) {
	a := Path{0x1, 0x2, 0x3, 0x4}
	b := Path{0x1, 0x2, 0x9, 0x4}
	got := a.Intersection(b)
	want := Path{0x1, 0x2}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestIntersectionIsNotBitwiseAnd(t *testing.T) {
	// 0x3 & 0x5 == 0x1, which is neither operand: a naive AND-based
	// intersection would wrongly treat this as a one-nibble match.
	a := Path{0x3}
	b := Path{0x5}
	got := a.Intersection(b)
	if got.Len() != 0 {
		t.Fatalf("expected no positional match, got %v", got)
	}
}

func TestIntersectionUnequalLength(t *testing.T) {
	a := Path{0x1, 0x2, 0x3}
	b := Path{0x1, 0x2}
	got := a.Intersection(b)
	if got.Len() != 2 {
		t.Fatalf("expected shared prefix of length 2, got %v", got)
	}
}

func TestPrefixedBytesOneNibble(t *testing.T) {
	p := Path{0x01}
	if got := p.PrefixedBytes(false); !bytes.Equal(got, []byte{0x11}) {
		t.Fatalf("ext: got %x want 11", got)
	}
	if got := p.PrefixedBytes(true); !bytes.Equal(got, []byte{0x31}) {
		t.Fatalf("leaf: got %x want 31", got)
	}
}

func TestPrefixedBytesTwoNibbles(t *testing.T) {
	p := Path{0x01, 0x02}
	if got := p.PrefixedBytes(false); !bytes.Equal(got, []byte{0x00, 0x12}) {
		t.Fatalf("ext: got %x want 0012", got)
	}
	if got := p.PrefixedBytes(true); !bytes.Equal(got, []byte{0x20, 0x12}) {
		t.Fatalf("leaf: got %x want 2012", got)
	}
}

func TestPrefixedBytesThreeNibbles(t *testing.T) {
	p := Path{0x01, 0x02, 0x03}
	if got := p.PrefixedBytes(false); !bytes.Equal(got, []byte{0x11, 0x23}) {
		t.Fatalf("ext: got %x want 1123", got)
	}
	if got := p.PrefixedBytes(true); !bytes.Equal(got, []byte{0x31, 0x23}) {
		t.Fatalf("leaf: got %x want 3123", got)
	}
}

func TestSliceToFrom(t *testing.T) {
	p := Path{0x1, 0x2, 0x3, 0x4}
	if got := p.SliceTo(2); !bytes.Equal(got, Path{0x1, 0x2}) {
		t.Fatalf("SliceTo(2) = %v", got)
	}
	if got := p.SliceFrom(2); !bytes.Equal(got, Path{0x3, 0x4}) {
		t.Fatalf("SliceFrom(2) = %v", got)
	}
}
