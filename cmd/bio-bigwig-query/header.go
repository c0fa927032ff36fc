package main

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/grailbio/bigwig/encoding/bigwig"
)

// bigWigMagic and bigBedMagic are the fixed four-byte signatures at the
// start of every BigWig/BigBed file. The file is little-endian if the
// magic reads correctly as-is, big-endian if it only matches after a
// byte swap.
const (
	bigWigMagic = 0x888FFC26
	bigBedMagic = 0x8789F2EB
)

const commonHeaderSize = 64

// readFileHeader parses the fixed 64-byte common header and the
// chromosome B+ tree that follows it. This is the file-header parsing
// the engine package treats as an external collaborator (§1): the
// engine only ever sees the resulting bigwig.Header.
func readFileHeader(f *os.File) (bigwig.Header, error) {
	buf := make([]byte, commonHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return bigwig.Header{}, errors.Wrap(err, "bio-bigwig-query: reading common header")
	}

	order, blockType, err := identifyMagic(buf[0:4])
	if err != nil {
		return bigwig.Header{}, err
	}

	chromTreeOffset := order.Uint64(buf[8:16])
	fullIndexOffset := order.Uint64(buf[24:32])
	uncompressBufSize := order.Uint32(buf[52:56])

	refsByName, err := readChromTree(f, order, chromTreeOffset)
	if err != nil {
		return bigwig.Header{}, errors.Wrap(err, "bio-bigwig-query: reading chromosome tree")
	}

	return bigwig.Header{
		CirTreeOffset: fullIndexOffset,
		CirTreeLength: 48,
		BigEndian:     order == binary.BigEndian,
		Compressed:    uncompressBufSize > 0,
		BlockType:     blockType,
		RefsByName:    refsByName,
	}, nil
}

func identifyMagic(raw []byte) (binary.ByteOrder, bigwig.BlockType, error) {
	le := binary.LittleEndian.Uint32(raw)
	switch le {
	case bigWigMagic:
		return binary.LittleEndian, bigwig.BlockTypeBigWig, nil
	case bigBedMagic:
		return binary.LittleEndian, bigwig.BlockTypeBigBed, nil
	}
	be := binary.BigEndian.Uint32(raw)
	switch be {
	case bigWigMagic:
		return binary.BigEndian, bigwig.BlockTypeBigWig, nil
	case bigBedMagic:
		return binary.BigEndian, bigwig.BlockTypeBigBed, nil
	}
	return nil, bigwig.BlockTypeSummary, errors.Errorf("bio-bigwig-query: unrecognized magic %#x", le)
}

// chromTreeHeaderSize is the fixed-layout B+ tree header bigWig/bigBed
// use for the reference-name index: magic(4) blockSize(4) keySize(4)
// valSize(4) itemCount(8) reserved(8).
const chromTreeHeaderSize = 32

// readChromTree walks the chromosome B+ tree rooted immediately after
// its header and returns the refName -> chromId mapping. Unlike the
// CIR-tree traversal in the engine package, this tree is small (one
// entry per reference sequence) and read depth-first with ordinary
// recursion: it is a one-shot startup cost paid once per opened file,
// not a per-query hot path, so it does not need C5's worklist
// treatment.
func readChromTree(f *os.File, order binary.ByteOrder, treeOffset uint64) (map[string]uint32, error) {
	hdr := make([]byte, chromTreeHeaderSize)
	if _, err := f.ReadAt(hdr, int64(treeOffset)); err != nil {
		return nil, err
	}
	keySize := order.Uint32(hdr[8:12])

	refs := make(map[string]uint32)
	if err := walkChromNode(f, order, treeOffset+chromTreeHeaderSize, keySize, refs); err != nil {
		return nil, err
	}
	return refs, nil
}

const chromNodeHeaderSize = 4

func walkChromNode(f *os.File, order binary.ByteOrder, offset uint64, keySize uint32, refs map[string]uint32) error {
	nodeHdr := make([]byte, chromNodeHeaderSize)
	if _, err := f.ReadAt(nodeHdr, int64(offset)); err != nil {
		return err
	}
	isLeaf := nodeHdr[0] == 1
	cnt := int(order.Uint16(nodeHdr[2:4]))
	pos := offset + chromNodeHeaderSize

	if isLeaf {
		const valSize = 8 // chromId(4) + chromSize(4)
		recSize := uint64(keySize) + valSize
		rec := make([]byte, recSize)
		for i := 0; i < cnt; i++ {
			if _, err := f.ReadAt(rec, int64(pos)); err != nil {
				return err
			}
			name := trimNulls(rec[:keySize])
			chromID := order.Uint32(rec[keySize : keySize+4])
			refs[name] = chromID
			pos += recSize
		}
		return nil
	}

	const childEntrySize = 8 // key follows, then an 8-byte child offset
	rec := make([]byte, uint64(keySize)+8)
	for i := 0; i < cnt; i++ {
		if _, err := f.ReadAt(rec, int64(pos)); err != nil {
			return err
		}
		childOffset := order.Uint64(rec[keySize : keySize+childEntrySize])
		if err := walkChromNode(f, order, childOffset, keySize, refs); err != nil {
			return err
		}
		pos += uint64(len(rec))
	}
	return nil
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
