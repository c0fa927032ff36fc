// Package bigwigtest provides an in-memory ByteReader and a synthetic
// CIR-tree/data-block builder for testing the bigwig package without a
// real file, following the bamprovider fakeProvider test-double
// pattern.
package bigwigtest

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/grailbio/bigwig/encoding/bigwig"
)

// FakeReader is a ByteReader backed by an in-memory byte slice. It is
// only for unittests.
type FakeReader struct {
	Data []byte

	// Reads records every ReadAt call's (fileOffset, length), for
	// assertions like "must not read any byte of child B's subtree".
	Reads []Read
}

// Read is one recorded FakeReader.ReadAt call.
type Read struct {
	FileOffset uint64
	Length     int
}

// ReadAt implements bigwig.ByteReader.
func (r *FakeReader) ReadAt(ctx context.Context, buf []byte, dstOffset int, length int, fileOffset uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Reads = append(r.Reads, Read{FileOffset: fileOffset, Length: length})
	copy(buf[dstOffset:dstOffset+length], r.Data[fileOffset:fileOffset+uint64(length)])
	return nil
}

// Builder assembles a synthetic CIR tree and its data blocks into one
// flat byte buffer, mirroring the on-disk layout of §3/§6.
type Builder struct {
	order binary.ByteOrder
	buf   []byte
}

// NewBuilder starts a Builder whose first CirTreeOffset-relative bytes
// will be written at whatever offset the caller subsequently records;
// callers typically reserve space with Pad before writing the tree.
func NewBuilder(order binary.ByteOrder) *Builder {
	return &Builder{order: order}
}

// Len returns the number of bytes written so far; useful for computing
// offsets of subsequently-written sections.
func (b *Builder) Len() int { return len(b.buf) }

// Pad appends n zero bytes and returns the offset they start at.
func (b *Builder) Pad(n int) uint64 {
	off := uint64(len(b.buf))
	b.buf = append(b.buf, make([]byte, n)...)
	return off
}

// WriteCirHeader appends a 48-byte CIR tree header with the given
// cirBlockSize at its canonical offset 4; all other bytes are zero
// (§3: "other fields are ignored").
func (b *Builder) WriteCirHeader(cirBlockSize uint32) uint64 {
	off := uint64(len(b.buf))
	hdr := make([]byte, 48)
	b.order.PutUint32(hdr[4:8], cirBlockSize)
	b.buf = append(b.buf, hdr...)
	return off
}

// LeafEntryInput is one entry to place in a leaf CirNode.
type LeafEntryInput struct {
	StartChrom, EndChrom uint32
	StartBase, EndBase   uint32
	BlockOffset, BlockSize uint64
}

// WriteLeafNode appends a leaf CirNode (4-byte header + 32-byte
// entries) and returns its offset.
func (b *Builder) WriteLeafNode(entries []LeafEntryInput) uint64 {
	off := uint64(len(b.buf))
	hdr := make([]byte, 4)
	hdr[0] = 1
	b.order.PutUint16(hdr[2:4], uint16(len(entries)))
	b.buf = append(b.buf, hdr...)
	for _, e := range entries {
		rec := make([]byte, 32)
		b.order.PutUint32(rec[0:4], e.StartChrom)
		b.order.PutUint32(rec[4:8], e.StartBase)
		b.order.PutUint32(rec[8:12], e.EndChrom)
		b.order.PutUint32(rec[12:16], e.EndBase)
		b.order.PutUint64(rec[16:24], e.BlockOffset)
		b.order.PutUint64(rec[24:32], e.BlockSize)
		b.buf = append(b.buf, rec...)
	}
	return off
}

// InternalEntryInput is one entry to place in an internal CirNode.
type InternalEntryInput struct {
	StartChrom, EndChrom uint32
	StartBase, EndBase   uint32
	ChildOffset          uint64
}

// WriteInternalNode appends an internal CirNode and returns its offset.
func (b *Builder) WriteInternalNode(entries []InternalEntryInput) uint64 {
	off := uint64(len(b.buf))
	hdr := make([]byte, 4)
	hdr[0] = 0
	b.order.PutUint16(hdr[2:4], uint16(len(entries)))
	b.buf = append(b.buf, hdr...)
	for _, e := range entries {
		rec := make([]byte, 24)
		b.order.PutUint32(rec[0:4], e.StartChrom)
		b.order.PutUint32(rec[4:8], e.StartBase)
		b.order.PutUint32(rec[8:12], e.EndChrom)
		b.order.PutUint32(rec[12:16], e.EndBase)
		b.order.PutUint64(rec[16:24], e.ChildOffset)
		b.buf = append(b.buf, rec...)
	}
	return off
}

// WriteSummaryBlock appends one or more 32-byte SummaryRecords and
// returns the block's (offset, length).
func (b *Builder) WriteSummaryBlock(recs []bigwig.SummaryRecord) (offset, length uint64) {
	offset = uint64(len(b.buf))
	for _, r := range recs {
		rec := make([]byte, 32)
		b.order.PutUint32(rec[0:4], r.ChromID)
		b.order.PutUint32(rec[4:8], r.Start)
		b.order.PutUint32(rec[8:12], r.End)
		b.order.PutUint32(rec[12:16], r.ValidCnt)
		b.order.PutUint32(rec[16:20], float32bits(r.MinScore))
		b.order.PutUint32(rec[20:24], float32bits(r.MaxScore))
		b.order.PutUint32(rec[24:28], float32bits(r.SumData))
		b.order.PutUint32(rec[28:32], float32bits(r.SumSqData))
		b.buf = append(b.buf, rec...)
	}
	length = uint64(len(b.buf)) - offset
	return offset, length
}

// FixedStepItem is one item of a fixed-step bigWig block.
type FixedStepItem struct{ Score float32 }

// WriteFixedStepBlock appends a bigWig block header (blockType=3)
// followed by FSTEP items, and returns the block's (offset, length).
func (b *Builder) WriteFixedStepBlock(chromID uint32, blockStart, blockEnd int32, itemStep, itemSpan uint32, items []FixedStepItem) (offset, length uint64) {
	offset = uint64(len(b.buf))
	b.writeBigWigHeader(chromID, blockStart, blockEnd, itemStep, itemSpan, 3, len(items))
	for _, it := range items {
		rec := make([]byte, 4)
		b.order.PutUint32(rec, float32bits(it.Score))
		b.buf = append(b.buf, rec...)
	}
	length = uint64(len(b.buf)) - offset
	return offset, length
}

// VarStepItem is one item of a variable-step bigWig block.
type VarStepItem struct {
	Start int32
	Score float32
}

// WriteVarStepBlock appends a bigWig block header (blockType=2)
// followed by VSTEP items, and returns the block's (offset, length).
func (b *Builder) WriteVarStepBlock(chromID uint32, blockStart, blockEnd int32, itemSpan uint32, items []VarStepItem) (offset, length uint64) {
	offset = uint64(len(b.buf))
	b.writeBigWigHeader(chromID, blockStart, blockEnd, 0, itemSpan, 2, len(items))
	for _, it := range items {
		rec := make([]byte, 8)
		b.order.PutUint32(rec[0:4], uint32(it.Start))
		b.order.PutUint32(rec[4:8], float32bits(it.Score))
		b.buf = append(b.buf, rec...)
	}
	length = uint64(len(b.buf)) - offset
	return offset, length
}

// GraphItem is one item of a graph (bedGraph) bigWig block.
type GraphItem struct {
	Start, End int32
	Score      float32
}

// WriteGraphBlock appends a bigWig block header (blockType=1) followed
// by GRAPH items, and returns the block's (offset, length).
func (b *Builder) WriteGraphBlock(chromID uint32, blockStart, blockEnd int32, items []GraphItem) (offset, length uint64) {
	offset = uint64(len(b.buf))
	b.writeBigWigHeader(chromID, blockStart, blockEnd, 0, 0, 1, len(items))
	for _, it := range items {
		rec := make([]byte, 12)
		b.order.PutUint32(rec[0:4], uint32(it.Start))
		b.order.PutUint32(rec[4:8], uint32(it.End))
		b.order.PutUint32(rec[8:12], float32bits(it.Score))
		b.buf = append(b.buf, rec...)
	}
	length = uint64(len(b.buf)) - offset
	return offset, length
}

func (b *Builder) writeBigWigHeader(chromID uint32, blockStart, blockEnd int32, itemStep, itemSpan uint32, blockType uint8, itemCount int) {
	hdr := make([]byte, 24)
	b.order.PutUint32(hdr[0:4], chromID)
	b.order.PutUint32(hdr[4:8], uint32(blockStart))
	b.order.PutUint32(hdr[8:12], uint32(blockEnd))
	b.order.PutUint32(hdr[12:16], itemStep)
	b.order.PutUint32(hdr[16:20], itemSpan)
	hdr[20] = blockType
	b.order.PutUint16(hdr[22:24], uint16(itemCount))
	b.buf = append(b.buf, hdr...)
}

// Bytes returns the accumulated buffer.
func (b *Builder) Bytes() []byte { return b.buf }

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}
