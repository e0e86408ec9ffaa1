package node

import (
	"bytes"
	"testing"

	"github.com/jaiminpan/fftrie/nibbles"
)

func TestLeafHashMatchesManualEncoding(t *testing.T) {
	leaf := NewLeaf(nibbles.FromBytes([]byte("do")), []byte("verb"))
	enc, err := Encode(leaf, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Manually build the same RLP list of two strings and compare byte for
	// byte: 0xc0 + listlen, then string(prefixed path), then string(value).
	path := nibbles.FromBytes([]byte("do")).PrefixedBytes(true)
	value := []byte("verb")

	var want bytes.Buffer
	// path string header (3 bytes -> 0x80+3)
	want.WriteByte(0x80 + byte(len(path)))
	want.Write(path)
	want.WriteByte(0x80 + byte(len(value)))
	want.Write(value)
	listBody := want.Bytes()
	var full bytes.Buffer
	full.WriteByte(0xc0 + byte(len(listBody)))
	full.Write(listBody)

	if !bytes.Equal(enc, full.Bytes()) {
		t.Fatalf("got % x want % x", enc, full.Bytes())
	}
}

func TestCodecRoundTripLeaf(t *testing.T) {
	leaf := NewLeaf(nibbles.Path{0x1, 0x2, 0x3}, []byte("value"))
	image, err := Encode(leaf, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	SetHash(leaf, FinalizeImage(image))

	buf, err := EncodeDisk(leaf)
	if err != nil {
		t.Fatalf("encode disk: %v", err)
	}

	decoded, err := DecodeDisk(buf)
	if err != nil {
		t.Fatalf("decode disk: %v", err)
	}
	got, ok := decoded.(*Leaf)
	if !ok {
		t.Fatalf("expected *Leaf, got %T", decoded)
	}
	if !bytes.Equal(got.Path, leaf.Path) {
		t.Fatalf("path mismatch: got %v want %v", got.Path, leaf.Path)
	}
	if !bytes.Equal(got.Value, leaf.Value) {
		t.Fatalf("value mismatch: got %v want %v", got.Value, leaf.Value)
	}
	if IsDirty(got) {
		t.Fatal("decoded node should not be dirty")
	}
	if !IsCommitted(got) {
		t.Fatal("decoded node should be committed")
	}
}

func TestCodecRoundTripBranchNoValue(t *testing.T) {
	b := NewBranch()
	b.Children[3] = 7
	image, _ := Encode(b, func(id ID) []byte {
		if id == 7 {
			return []byte{0xc0}
		}
		return nil
	})
	SetHash(b, FinalizeImage(image))

	buf, err := EncodeDisk(b)
	if err != nil {
		t.Fatalf("encode disk: %v", err)
	}
	decoded, err := DecodeDisk(buf)
	if err != nil {
		t.Fatalf("decode disk: %v", err)
	}
	got := decoded.(*Branch)
	if got.HasValue {
		t.Fatalf("expected no value, got HasValue=true value=%v", got.Value)
	}
	if got.Children[3] != 7 {
		t.Fatalf("expected child[3]=7, got %d", got.Children[3])
	}
}

// TestCodecRoundTripBranchEmptyValue pins down the distinction between "no
// terminator at this branch" and "a terminator whose value is the empty
// byte sequence" — both produce a zero-length Value, and only HasValue
// tells them apart, on either side of an EncodeDisk/DecodeDisk round trip.
func TestCodecRoundTripBranchEmptyValue(t *testing.T) {
	b := NewBranch()
	b.HasValue = true
	b.Value = []byte{}

	image, err := Encode(b, func(ID) []byte { return nil })
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	SetHash(b, FinalizeImage(image))

	buf, err := EncodeDisk(b)
	if err != nil {
		t.Fatalf("encode disk: %v", err)
	}
	decoded, err := DecodeDisk(buf)
	if err != nil {
		t.Fatalf("decode disk: %v", err)
	}

	got := decoded.(*Branch)
	if !got.HasValue {
		t.Fatal("expected HasValue=true to survive the round trip")
	}
	if len(got.Value) != 0 {
		t.Fatalf("expected an empty value, got %v", got.Value)
	}
}

func TestCodecRoundTripExtension(t *testing.T) {
	ext := NewExtension(nibbles.Path{0xa, 0xb, 0xc, 0xd}, 42)
	image, err := Encode(ext, func(ID) []byte { return []byte{0xc0} })
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	SetHash(ext, FinalizeImage(image))

	buf, err := EncodeDisk(ext)
	if err != nil {
		t.Fatalf("encode disk: %v", err)
	}
	decoded, err := DecodeDisk(buf)
	if err != nil {
		t.Fatalf("decode disk: %v", err)
	}
	got := decoded.(*Extension)
	if !bytes.Equal(got.Path, ext.Path) {
		t.Fatalf("path mismatch: got %v want %v", got.Path, ext.Path)
	}
	if got.Child != 42 {
		t.Fatalf("expected child 42, got %d", got.Child)
	}
}

func TestDiskImageAlwaysThirtyTwoBytes(t *testing.T) {
	short := []byte{0xc2, 0x01, 0x02}
	digest := DiskImage(short)
	if len(digest) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(digest))
	}
	want := Keccak256(short)
	if !bytes.Equal(digest[:], want) {
		t.Fatalf("disk image should re-hash short inline images")
	}
}
