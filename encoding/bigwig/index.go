package bigwig

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// maxNodeSize bounds the size of a fully-populated CirNode, used
// to size speculative node reads before the node's own cnt field is
// known (§4.5 step 1).
func maxNodeSize(cirBlockSize uint32) uint64 {
	return uint64(cirNodeHeaderSize) + uint64(cirBlockSize)*leafEntrySize
}

// overlaps implements the §4.5 pruning predicate: does entry's genomic
// range, interpreted over the ordered (chromId, base) space, touch
// [req.Start, req.End] on req.ChromID.
func overlaps(startChrom, startBase, endChrom, endBase uint32, req CoordRequest) bool {
	startsBeforeEnd := startChrom < req.ChromID ||
		(startChrom == req.ChromID && int64(startBase) <= int64(req.End))
	endsAfterStart := endChrom > req.ChromID ||
		(endChrom == req.ChromID && int64(endBase) >= int64(req.Start))
	return startsBeforeEnd && endsAfterStart
}

// traversal drives one IndexTraverser walk (§4.5): an explicit
// worklist of sibling-offset rounds plus an outstanding counter,
// rather than recursion interleaved with I/O (§9).
type traversal struct {
	ctx       context.Context
	cache     *ReadCache
	order     binary.ByteOrder
	blockSize uint32
	req       CoordRequest

	mu          sync.Mutex
	descriptors []DataBlockDescriptor
	outstanding int64

	errOnce sync.Once
	err     error

	done chan struct{}
}

// Walk traverses the CIR tree rooted at rootOffset and returns every
// leaf data-block descriptor whose range passes overlaps(·, req). It
// blocks until the traversal completes, fails, or ctx is cancelled.
func Walk(ctx context.Context, cache *ReadCache, rootOffset uint64, blockSize uint32, order binary.ByteOrder, req CoordRequest) ([]DataBlockDescriptor, error) {
	t := &traversal{
		ctx:       ctx,
		cache:     cache,
		order:     order,
		blockSize: blockSize,
		req:       req,
		done:      make(chan struct{}),
	}
	t.outstanding = 1
	go t.processRound([]uint64{rootOffset})

	select {
	case <-t.done:
		if ctx.Err() != nil {
			// A cancelled round drains the counter without reading its
			// nodes, so the collected descriptors may be incomplete.
			return nil, ErrCancelled
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.err != nil {
			return nil, t.err
		}
		return t.descriptors, nil
	case <-ctx.Done():
		return nil, ErrCancelled
	}
}

func (t *traversal) fail(kind ErrorKind, cause error) {
	t.errOnce.Do(func() {
		t.mu.Lock()
		t.err = newError(kind, cause)
		t.mu.Unlock()
		close(t.done)
	})
}

// processRound handles one worklist round: a set of sibling CirNode
// offsets. Edge case (§4.5): an empty set is a no-op.
func (t *traversal) processRound(offsets []uint64) {
	if len(offsets) == 0 {
		return
	}
	if t.ctx.Err() != nil {
		t.finishRound(len(offsets), nil)
		return
	}

	size := maxNodeSize(t.blockSize)
	rs := NewRangeSet(offsets[0], offsets[0]+size)
	for _, o := range offsets[1:] {
		rs = rs.Union(NewRangeSet(o, o+size))
	}

	var wg sync.WaitGroup
	var children []uint64
	var childMu sync.Mutex
	for _, fr := range rs.Ranges() {
		fr := fr
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf, err := t.cache.Get(t.ctx, fr.Min, int(fr.Max-fr.Min))
			if err != nil {
				if stderrors.Is(err, ErrCancelled) {
					return
				}
				t.fail(KindIoFailure, err)
				return
			}
			for _, o := range offsets {
				if o < fr.Min || o >= fr.Max+1 {
					continue
				}
				kids, err := t.processNode(buf[o-fr.Min:])
				if err != nil {
					t.fail(KindParseFailure, err)
					return
				}
				if len(kids) > 0 {
					childMu.Lock()
					children = append(children, kids...)
					childMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	t.finishRound(len(offsets), children)
}

// finishRound decrements the outstanding counter by consumed (the
// offsets this round processed) and, if children is non-empty,
// increments it by len(children) and dispatches the next round.
// Completion (outstanding reaches zero) fires the rendezvous exactly
// once.
func (t *traversal) finishRound(consumed int, children []uint64) {
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	remaining := atomic.AddInt64(&t.outstanding, int64(len(children))-int64(consumed))
	if len(children) > 0 {
		go t.processRound(children)
	}
	if remaining == 0 {
		t.errOnce.Do(func() { close(t.done) })
	} else if remaining < 0 {
		t.fail(KindTraversalIncomplete, errTraversalCounterUnderflow)
	}
}

var errTraversalCounterUnderflow = errors.New("bigwig: traversal outstanding counter went negative")

// processNode parses one CirNode from buf (§3). For a leaf it appends
// the descriptors of passing entries directly onto t.descriptors and
// returns no children; for an internal node it returns the child
// offsets of the entries that pass overlaps.
func (t *traversal) processNode(buf []byte) (children []uint64, err error) {
	if len(buf) < cirNodeHeaderSize {
		return nil, errors.New("bigwig: truncated CIR node header")
	}
	isLeaf := buf[0] == 1
	cnt := int(t.order.Uint16(buf[2:4]))
	body := buf[cirNodeHeaderSize:]

	if isLeaf {
		if len(body) < cnt*leafEntrySize {
			return nil, errors.New("bigwig: truncated CIR leaf node")
		}
		var leaves []DataBlockDescriptor
		for i := 0; i < cnt; i++ {
			e := body[i*leafEntrySize:]
			startChrom := t.order.Uint32(e[0:4])
			startBase := t.order.Uint32(e[4:8])
			endChrom := t.order.Uint32(e[8:12])
			endBase := t.order.Uint32(e[12:16])
			if !overlaps(startChrom, startBase, endChrom, endBase, t.req) {
				continue
			}
			leaves = append(leaves, DataBlockDescriptor{
				Offset: t.order.Uint64(e[16:24]),
				Length: t.order.Uint64(e[24:32]),
			})
		}
		if len(leaves) > 0 {
			t.mu.Lock()
			t.descriptors = append(t.descriptors, leaves...)
			t.mu.Unlock()
		}
		return nil, nil
	}

	if len(body) < cnt*internalEntrySize {
		return nil, errors.New("bigwig: truncated CIR internal node")
	}
	for i := 0; i < cnt; i++ {
		e := body[i*internalEntrySize:]
		startChrom := t.order.Uint32(e[0:4])
		startBase := t.order.Uint32(e[4:8])
		endChrom := t.order.Uint32(e[8:12])
		endBase := t.order.Uint32(e[12:16])
		if !overlaps(startChrom, startBase, endChrom, endBase, t.req) {
			continue
		}
		children = append(children, t.order.Uint64(e[16:24]))
	}
	return children, nil
}
