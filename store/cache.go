package store

import (
	"encoding/binary"

	"github.com/qianbin/directcache"

	"github.com/jaiminpan/fftrie/internal/metrics"
	"github.com/jaiminpan/fftrie/node"
)

// CachingStore wraps another Store with a read-through, offset-keyed
// memoization of encoded node records (spec §4.6). It caches the encoded
// disk form rather than live *node.Leaf/*node.Extension/*node.Branch
// values: directcache is a byte-oriented, allocation-light cache, and for a
// store this hot (every uncached read on a large trie walks the file's
// mmap window) re-decoding a cached blob is far cheaper than the GC
// pressure of pinning millions of live node objects.
type CachingStore struct {
	inner Store
	cache *directcache.Cache
}

// NewCachingStore wraps inner with a cache sized to hold roughly
// capacityBytes worth of encoded node records.
func NewCachingStore(inner Store, capacityBytes int) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: directcache.New(capacityBytes),
	}
}

// Get implements Store, consulting the cache before falling through to the
// wrapped store and memoizing the result either way.
func (s *CachingStore) Get(offset int64) (node.Node, error) {
	key := cacheKey(offset)
	if blob, ok := s.cache.Get(nil, key); ok {
		metrics.StoreReads.WithLabelValues("hit").Inc()
		return node.DecodeDisk(blob)
	}

	n, err := s.inner.Get(offset)
	if err != nil {
		return nil, err
	}
	if blob, encErr := node.EncodeDisk(n); encErr == nil {
		_ = s.cache.Set(key, blob)
	}
	return n, nil
}

// Put implements Store, writing through to the wrapped store and
// memoizing the encoded record under the offset it was assigned.
func (s *CachingStore) Put(n node.Node) (int64, error) {
	offset, err := s.inner.Put(n)
	if err != nil {
		return 0, err
	}
	if blob, encErr := node.EncodeDisk(n); encErr == nil {
		_ = s.cache.Set(cacheKey(offset), blob)
	}
	return offset, nil
}

// Flush implements Store by delegating to the wrapped store; the cache
// itself has nothing to durably persist.
func (s *CachingStore) Flush() error {
	return s.inner.Flush()
}

func cacheKey(offset int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(offset))
	return k[:]
}
