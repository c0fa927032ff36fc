package bigwig

import (
	"context"
	"hash/maphash"
	"sync"

	"github.com/dgryski/go-tinylfu"
	"github.com/grailbio/base/log"
)

// maxCacheEntries bounds the ReadCache's resident entry count (§4.3,
// §5).
const maxCacheEntries = 1000

// ErrCancelled is returned by ReadCache.Get (and propagates up through
// IndexTraverser/QueryEngine) when the caller's context was cancelled
// before its read was satisfied. Per §7 this is not an error: it
// suppresses further Observer callbacks rather than invoking
// Observer.Error.
var ErrCancelled = newConstError("bigwig: query cancelled")

type cacheKey struct {
	offset uint64
	length int
}

var cacheKeySeed = maphash.MakeSeed()

func hashCacheKey(k cacheKey) uint64 {
	var h maphash.Hash
	h.SetSeed(cacheKeySeed)
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(k.offset >> (8 * i))
	}
	length := uint64(k.length)
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(length >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}

// inflightFetch tracks a single shared in-progress fill for one
// cacheKey. waiters counts callers still interested in the result;
// the fetch's own context is cancelled only once waiters drops to
// zero, so one waiter's cancellation never aborts a fetch that other
// waiters still need (§4.3, §5).
type inflightFetch struct {
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	buf     []byte
	err     error
	waiters int
}

// ReadCache is the bounded, deduplicating LRU described in §4.3: it
// fronts a ByteReader with up to maxCacheEntries resident
// (offset,length) buffers, and ensures identical concurrent requests
// share a single backing read.
//
// The cache is admission-LRU (github.com/dgryski/go-tinylfu), the same
// library elliotnunn-BeHierarchic's spinner package uses for bounded
// caches of positional byte ranges.
type ReadCache struct {
	reader ByteReader

	mu       sync.Mutex
	entries  *tinylfu.T[cacheKey, []byte]
	inflight map[cacheKey]*inflightFetch
}

// NewReadCache constructs a ReadCache backed by reader.
func NewReadCache(reader ByteReader) *ReadCache {
	return &ReadCache{
		reader:   reader,
		entries:  tinylfu.New[cacheKey, []byte](maxCacheEntries, maxCacheEntries*10, hashCacheKey),
		inflight: make(map[cacheKey]*inflightFetch),
	}
}

// Get returns the length bytes at fileOffset, from cache if resident,
// otherwise by issuing (or joining) a single backing ByteReader.ReadAt
// call. The returned slice must not be mutated by the caller: it may
// be shared with other waiters and with the cache's own LRU entry.
func (c *ReadCache) Get(ctx context.Context, fileOffset uint64, length int) ([]byte, error) {
	key := cacheKey{offset: fileOffset, length: length}

	c.mu.Lock()
	if buf, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		return buf, nil
	}
	f, joined := c.inflight[key]
	if !joined {
		fctx, cancel := context.WithCancel(context.Background())
		f = &inflightFetch{done: make(chan struct{}), ctx: fctx, cancel: cancel, waiters: 1}
		c.inflight[key] = f
		c.mu.Unlock()
		go c.fill(key, f)
	} else {
		f.waiters++
		c.mu.Unlock()
	}

	select {
	case <-f.done:
		c.mu.Lock()
		f.waiters--
		c.mu.Unlock()
		return f.buf, f.err
	case <-ctx.Done():
		c.mu.Lock()
		f.waiters--
		if f.waiters == 0 {
			f.cancel()
		}
		c.mu.Unlock()
		return nil, ErrCancelled
	}
}

// fill performs the actual backing read for key and wakes every
// waiter. The resulting buffer is only admitted to the LRU (c.entries)
// once the read has fully succeeded, so eviction can never observe a
// partially-filled entry (§5 "Eviction never races with a live
// waiter").
func (c *ReadCache) fill(key cacheKey, f *inflightFetch) {
	buf := make([]byte, key.length)
	err := c.reader.ReadAt(f.ctx, buf, 0, key.length, key.offset)

	c.mu.Lock()
	switch {
	case err != nil && f.ctx.Err() != nil:
		f.err = ErrCancelled
	case err != nil:
		f.err = newError(KindIoFailure, err)
		log.Error.Printf("bigwig: read failed at offset=%d length=%d: %v", key.offset, key.length, err)
	default:
		f.buf = buf
		c.entries.Add(key, buf)
	}
	delete(c.inflight, key)
	c.mu.Unlock()

	close(f.done)
}
