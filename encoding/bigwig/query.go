package bigwig

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"runtime"
	"sync"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// maxGroupConcurrency bounds the number of BlockGroup fetch-and-decode
// goroutines run at once per query, the same bounded-worker-pool shape
// markduplicates.go and shardedbam.go use for their shard-processing
// pools.
func maxGroupConcurrency() int {
	if n := runtime.NumCPU(); n > 1 {
		return n
	}
	return 1
}

// QueryOptions configures one ReadWigData call. The zero value uses
// defaultCoalesceGap and maxGroupConcurrency.
type QueryOptions struct {
	Coalesce    CoalesceOptions
	Concurrency int
}

func (o QueryOptions) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return maxGroupConcurrency()
}

// QueryEngine is the public façade (C7): it drives IndexTraverser,
// BlockCoalescer, and BlockDecoder for one opened BigWig/BigBed file
// and publishes results to a caller-supplied Observer.
type QueryEngine struct {
	reader        ByteReader
	decompressor  Decompressor
	header        Header
	byteOrder     binary.ByteOrder

	cache *ReadCache

	headerMu     sync.Mutex
	headerLoaded bool
	blockSize    uint32
}

// NewQueryEngine constructs a QueryEngine over reader, described by
// header. header.Validate() is checked synchronously (§7
// InvalidArgument); decompressor is only consulted when
// header.Compressed is true and may be nil otherwise.
func NewQueryEngine(reader ByteReader, header Header, decompressor Decompressor) (*QueryEngine, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if header.BigEndian {
		order = binary.BigEndian
	}
	return &QueryEngine{
		reader:       reader,
		decompressor: decompressor,
		header:       header,
		byteOrder:    order,
		cache:        NewReadCache(reader),
	}, nil
}

// ensureCirHeader reads the 48-byte CIR tree header at most once,
// regardless of how many queries race to be first (§4.7 step 2, §5). A
// cancelled or failed attempt does not poison later queries: only a
// successful read is memoized.
func (q *QueryEngine) ensureCirHeader(ctx context.Context) (uint32, error) {
	q.headerMu.Lock()
	defer q.headerMu.Unlock()
	if q.headerLoaded {
		return q.blockSize, nil
	}
	buf, err := q.cache.Get(ctx, q.header.CirTreeOffset, 48)
	if err != nil {
		if stderrors.Is(err, ErrCancelled) {
			return 0, ErrCancelled
		}
		return 0, newError(KindIoFailure, err)
	}
	q.blockSize = q.byteOrder.Uint32(buf[4:8])
	q.headerLoaded = true
	return q.blockSize, nil
}

// ReadWigData implements the public operation of §4.7: locate every
// feature overlapping [start, end) on refName and deliver it to obs.
//
// ReadWigData only returns a non-nil error for synchronous,
// pre-traversal failures. Every other failure, including an unknown
// reference, is surfaced through obs.
func (q *QueryEngine) ReadWigData(ctx context.Context, refName string, start, end int32, obs Observer, opts QueryOptions) error {
	chromID, ok := q.header.RefsByName[refName]
	if !ok {
		obs.Complete()
		return nil
	}
	req := CoordRequest{ChromID: chromID, Start: start, End: end}

	blockSize, err := q.ensureCirHeader(ctx)
	if err != nil {
		if stderrors.Is(err, ErrCancelled) {
			return nil
		}
		obs.Error(err)
		return nil
	}

	descriptors, err := Walk(ctx, q.cache, q.header.CirTreeOffset+48, blockSize, q.byteOrder, req)
	if err != nil {
		if stderrors.Is(err, ErrCancelled) {
			return nil
		}
		obs.Error(err)
		return nil
	}

	q.readFeatures(ctx, descriptors, req, obs, opts)
	return nil
}

// readFeatures implements §4.7 step 4-5: group, concurrently fetch,
// decode, and deliver, then issue the single terminal callback.
func (q *QueryEngine) readFeatures(ctx context.Context, descriptors []DataBlockDescriptor, req CoordRequest, obs Observer, opts QueryOptions) {
	groups := CoalesceBlocks(descriptors, opts.Coalesce)
	log.Debug.Printf("bigwig: chrom=%d [%d,%d) %d blocks coalesced into %d groups",
		req.ChromID, req.Start, req.End, len(descriptors), len(groups))
	if len(groups) == 0 {
		obs.Complete()
		return
	}

	var (
		er       errorreporter.T
		deliverM sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, opts.concurrency())
	)
	cancelled := func() bool { return ctx.Err() != nil }

	for _, g := range groups {
		if er.Err() != nil || cancelled() {
			break
		}
		g := g
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			q.fetchAndDecodeGroup(ctx, g, req, obs, &deliverM, &er)
		}()
	}
	wg.Wait()

	if cancelled() {
		return
	}
	if err := er.Err(); err != nil {
		obs.Error(err)
		return
	}
	obs.Complete()
}

// fetchAndDecodeGroup fetches one BlockGroup, then decodes each member
// block in turn, delivering one Observer.Next call per decoded block.
func (q *QueryEngine) fetchAndDecodeGroup(ctx context.Context, g BlockGroup, req CoordRequest, obs Observer, deliverM *sync.Mutex, er *errorreporter.T) {
	data, err := q.cache.Get(ctx, g.Offset, int(g.Length))
	if err != nil {
		if !stderrors.Is(err, ErrCancelled) {
			er.Set(newError(KindIoFailure, err))
		}
		return
	}

	for _, b := range g.Blocks {
		if er.Err() != nil || ctx.Err() != nil {
			return
		}
		localOff := b.Offset - g.Offset
		if localOff+b.Length > uint64(len(data)) {
			er.Set(newError(KindParseFailure, errors.Errorf("bigwig: block at %d extends past its group", b.Offset)))
			return
		}
		raw := data[localOff : localOff+b.Length]

		decoded := raw
		if q.header.Compressed {
			decoded, err = q.decompressor.Inflate(nil, raw)
			if err != nil {
				er.Set(newError(KindDecompressionFailure, err))
				return
			}
		}

		features, err := DecodeBlock(q.header.BlockType, decoded, b.Offset, q.byteOrder, req)
		if err != nil {
			er.Set(newError(KindParseFailure, err))
			return
		}
		deliverM.Lock()
		obs.Next(features)
		deliverM.Unlock()
	}
}
