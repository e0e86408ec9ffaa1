package store

import (
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ethereum/go-ethereum/log"

	"github.com/jaiminpan/fftrie/internal/metrics"
	"github.com/jaiminpan/fftrie/node"
)

// FileStore is an append-only node store backed by a single file, with a
// memory-mapped read path and an in-memory write buffer (spec §4.6).
//
// It tracks two sizes: diskSize (bytes durably on disk, and thus reflected
// in the current mmap view) and memSize (diskSize plus whatever is still
// sitting in the write buffer). Put assigns offsets out of memSize before
// the bytes are flushed; Get is only guaranteed to see an offset once Flush
// has advanced diskSize past it and remapped. This is deliberate: the
// engine only ever reads offsets it wrote in a prior, already-committed
// generation (spec §4.6).
//
// Byte 0 of the file is a reserved pad, never part of any record: offset 0
// is the null-child sentinel everywhere else in this module (see node.ID),
// so Put must never hand it out as a real record's offset. NewFileStore
// writes that pad byte once, up front, which puts the first real record at
// offset 1 — the same numbering MemoryStore uses.
type FileStore struct {
	file     *os.File
	buf      []byte
	diskSize int64
	memSize  int64
	mm       mmap.MMap
}

// FileStoreOption configures NewFileStore.
type FileStoreOption func(*FileStore)

// WithWriteBufferCapacity pre-allocates the write buffer, avoiding repeated
// growth for callers who know roughly how much they'll write before the
// next Flush.
func WithWriteBufferCapacity(n int) FileStoreOption {
	return func(s *FileStore) {
		s.buf = make([]byte, 0, n)
	}
}

// NewFileStore opens (or creates) the node file at path. Spec §6 describes
// a freshly created file as having length 0 with no recorded root; this Go
// port reserves a single pad byte at offset 0 instead (see FileStore's doc
// comment), so a brand new file has size 1, not 0, and its first record
// lands at offset 1.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &IoError{Op: "open", Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IoError{Op: "stat", Err: err}
	}
	size := info.Size()

	if size == 0 {
		if _, err := f.WriteAt([]byte{0x00}, 0); err != nil {
			f.Close()
			return nil, &IoError{Op: "write", Err: err}
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, &IoError{Op: "sync", Err: err}
		}
		size = 1
	}

	s := &FileStore{
		file:     f,
		buf:      make([]byte, 0, 10*1024*1024),
		diskSize: size,
		memSize:  size,
	}
	for _, opt := range opts {
		opt(s)
	}
	m, err := mmap.MapRegion(f, int(size), mmap.RDONLY, 0, 0)
	if err != nil {
		f.Close()
		return nil, &IoError{Op: "mmap", Err: err}
	}
	s.mm = m
	log.Debug("opened trie node file store", "path", path, "size", size)
	return s, nil
}

// Get implements Store. offset must be an already-flushed position: the
// caller (package trie) only ever reads offsets from a prior commit, so
// this bound is always satisfied in normal operation.
func (s *FileStore) Get(offset int64) (node.Node, error) {
	if offset <= 0 || offset > s.memSize {
		metrics.StoreReads.WithLabelValues("miss").Inc()
		return nil, ErrNotFound
	}
	if offset+2 > s.diskSize || s.mm == nil {
		// Not guaranteed visible yet: it's still sitting in the write
		// buffer and hasn't been flushed into the mmap window.
		metrics.StoreReads.WithLabelValues("miss").Inc()
		return nil, ErrNotFound
	}
	size := int64(binary.BigEndian.Uint16(s.mm[offset : offset+2]))
	if offset+2+size > s.diskSize {
		return nil, &CorruptDataErr{Reason: "framed record overruns flushed region"}
	}
	payload := s.mm[offset+2 : offset+2+size]
	n, err := node.DecodeDisk(payload)
	if err != nil {
		return nil, err
	}
	metrics.StoreReads.WithLabelValues("hit").Inc()
	return n, nil
}

// Put implements Store. It serializes n into the write buffer prefixed
// with its 2-byte big-endian length and returns the offset it will occupy
// once flushed.
func (s *FileStore) Put(n node.Node) (int64, error) {
	payload, err := node.EncodeDisk(n)
	if err != nil {
		return 0, err
	}
	if len(payload) > 0xFFFF {
		return 0, &CorruptDataErr{Reason: "node record exceeds 64KiB frame limit"}
	}

	offset := s.memSize
	var lenPrefix [2]byte
	binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(payload)))
	s.buf = append(s.buf, lenPrefix[:]...)
	s.buf = append(s.buf, payload...)
	s.memSize += int64(2 + len(payload))

	metrics.StoreWrites.Inc()
	metrics.StoreBytesWritten.Add(float64(2 + len(payload)))
	return offset, nil
}

// Flush implements Store: it appends the write buffer to the file,
// advances diskSize, empties the buffer, and remaps the mmap window so
// subsequent Get calls can observe the newly durable bytes.
func (s *FileStore) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	if _, err := s.file.WriteAt(s.buf, s.diskSize); err != nil {
		return &IoError{Op: "write", Err: err}
	}
	if err := s.file.Sync(); err != nil {
		return &IoError{Op: "sync", Err: err}
	}
	s.diskSize += int64(len(s.buf))
	s.buf = s.buf[:0]

	if s.mm != nil {
		if err := s.mm.Unmap(); err != nil {
			return &IoError{Op: "unmap", Err: err}
		}
	}
	mm, err := mmap.MapRegion(s.file, int(s.diskSize), mmap.RDONLY, 0, 0)
	if err != nil {
		return &IoError{Op: "mmap", Err: err}
	}
	s.mm = mm
	log.Debug("flushed trie node file store", "diskSize", s.diskSize)
	return nil
}

// Close unmaps and closes the underlying file. Not part of the Store
// interface — callers that own a FileStore directly should defer it.
func (s *FileStore) Close() error {
	if s.mm != nil {
		if err := s.mm.Unmap(); err != nil {
			return &IoError{Op: "unmap", Err: err}
		}
	}
	if err := s.file.Close(); err != nil {
		return &IoError{Op: "close", Err: err}
	}
	return nil
}

// CorruptDataErr reports framing inconsistent with the on-disk layout.
type CorruptDataErr struct{ Reason string }

func (e *CorruptDataErr) Error() string { return "store: corrupt data: " + e.Reason }
