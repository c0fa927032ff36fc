package bigwig

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// DecodeBlock parses one post-inflate data block of the given type into
// Features overlapping req (§4.6). blockFileOffset is the block's
// original file offset, used to derive BigBed UniqueID values.
func DecodeBlock(blockType BlockType, buf []byte, blockFileOffset uint64, order binary.ByteOrder, req CoordRequest) ([]Feature, error) {
	switch blockType {
	case BlockTypeSummary:
		return decodeSummaryBlock(buf, order, req)
	case BlockTypeBigBed:
		return decodeBigBedBlock(buf, blockFileOffset, order, req)
	case BlockTypeBigWig:
		return decodeBigWigBlock(buf, order, req)
	default:
		return nil, errors.Errorf("bigwig: unknown block type %v", blockType)
	}
}

// decodeSummaryBlock implements §4.6.1: fixed 32-byte records until the
// end of buf.
func decodeSummaryBlock(buf []byte, order binary.ByteOrder, req CoordRequest) ([]Feature, error) {
	if len(buf)%summaryRecordSize != 0 {
		return nil, errors.Errorf("bigwig: summary block length %d not a multiple of %d", len(buf), summaryRecordSize)
	}
	var out []Feature
	for off := 0; off < len(buf); off += summaryRecordSize {
		r := buf[off : off+summaryRecordSize]
		rec := SummaryRecord{
			ChromID:   order.Uint32(r[0:4]),
			Start:     order.Uint32(r[4:8]),
			End:       order.Uint32(r[8:12]),
			ValidCnt:  order.Uint32(r[12:16]),
			MinScore:  math.Float32frombits(order.Uint32(r[16:20])),
			MaxScore:  math.Float32frombits(order.Uint32(r[20:24])),
			SumData:   math.Float32frombits(order.Uint32(r[24:28])),
			SumSqData: math.Float32frombits(order.Uint32(r[28:32])),
		}
		if rec.ChromID != req.ChromID {
			continue
		}
		f := rec.ToFeature()
		if f.Overlaps(req) {
			out = append(out, f)
		}
	}
	return out, nil
}

// decodeBigBedBlock implements §4.6.2: variable-length records with a
// zero-terminated rest field, until the end of buf.
func decodeBigBedBlock(buf []byte, blockFileOffset uint64, order binary.ByteOrder, req CoordRequest) ([]Feature, error) {
	var out []Feature
	off := 0
	for off < len(buf) {
		if off+12 > len(buf) {
			return nil, errors.New("bigwig: truncated bigBed record header")
		}
		chromID := order.Uint32(buf[off : off+4])
		start := int32(order.Uint32(buf[off+4 : off+8]))
		end := int32(order.Uint32(buf[off+8 : off+12]))
		recStart := off
		off += 12

		nul := bytes.IndexByte(buf[off:], 0)
		if nul < 0 {
			return nil, errors.New("bigwig: unterminated bigBed rest field")
		}
		rest := buf[off : off+nul]
		off += nul + 1

		_ = chromID // already filtered to req.ChromID by traversal
		f := Feature{
			Start:    start,
			End:      end,
			Rest:     rest,
			UniqueID: fmt.Sprintf("bb-%d", blockFileOffset+uint64(recStart)),
		}
		if f.Overlaps(req) {
			out = append(out, f)
		}
	}
	return out, nil
}

// decodeBigWigBlock implements §4.6.3: a 24-byte header, then
// itemCount items whose shape depends on the header's blockType.
func decodeBigWigBlock(buf []byte, order binary.ByteOrder, req CoordRequest) ([]Feature, error) {
	if len(buf) < bigWigBlockHeaderSize {
		return nil, errors.New("bigwig: truncated bigWig block header")
	}
	hdr := bigWigBlockHeader{
		ChromID:    order.Uint32(buf[0:4]),
		BlockStart: int32(order.Uint32(buf[4:8])),
		BlockEnd:   int32(order.Uint32(buf[8:12])),
		ItemStep:   order.Uint32(buf[12:16]),
		ItemSpan:   order.Uint32(buf[16:20]),
		BlockType:  wigItemType(buf[20]),
		Reserved:   buf[21],
		ItemCount:  order.Uint16(buf[22:24]),
	}
	items := buf[bigWigBlockHeaderSize:]

	var out []Feature
	switch hdr.BlockType {
	case wigItemFStep:
		const itemSize = 4
		if len(items) < int(hdr.ItemCount)*itemSize {
			return nil, errors.New("bigwig: truncated fixed-step items")
		}
		for i := 0; i < int(hdr.ItemCount); i++ {
			score := math.Float32frombits(order.Uint32(items[i*itemSize : i*itemSize+4]))
			start := hdr.BlockStart + int32(i)*int32(hdr.ItemStep)
			f := Feature{Start: start, End: start + int32(hdr.ItemSpan), Score: score}
			if f.Overlaps(req) {
				out = append(out, f)
			}
		}
	case wigItemVStep:
		const itemSize = 8
		if len(items) < int(hdr.ItemCount)*itemSize {
			return nil, errors.New("bigwig: truncated variable-step items")
		}
		for i := 0; i < int(hdr.ItemCount); i++ {
			rec := items[i*itemSize : i*itemSize+itemSize]
			start := int32(order.Uint32(rec[0:4]))
			score := math.Float32frombits(order.Uint32(rec[4:8]))
			f := Feature{Start: start, End: start + int32(hdr.ItemSpan), Score: score}
			if f.Overlaps(req) {
				out = append(out, f)
			}
		}
	case wigItemGraph:
		const itemSize = 12
		if len(items) < int(hdr.ItemCount)*itemSize {
			return nil, errors.New("bigwig: truncated graph items")
		}
		for i := 0; i < int(hdr.ItemCount); i++ {
			rec := items[i*itemSize : i*itemSize+itemSize]
			start := int32(order.Uint32(rec[0:4]))
			end := int32(order.Uint32(rec[4:8]))
			score := math.Float32frombits(order.Uint32(rec[8:12]))
			f := Feature{Start: start, End: end, Score: score}
			if f.Overlaps(req) {
				out = append(out, f)
			}
		}
	default:
		log.Error.Printf("bigwig: unknown bigWig block item type %d", hdr.BlockType)
		return nil, nil
	}
	return out, nil
}
