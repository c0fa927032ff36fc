package bigwig

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/bigwig/encoding/bigwig/bigwigtest"
)

// TestSummaryDecodeScenarioS4 is scenario S4.
func TestSummaryDecodeScenarioS4(t *testing.T) {
	b := bigwigtest.NewBuilder(binary.LittleEndian)
	b.WriteSummaryBlock([]SummaryRecord{
		{ChromID: 5, Start: 100, End: 200, ValidCnt: 10, MinScore: -1, MaxScore: 3, SumData: 20, SumSqData: 50},
	})

	req := CoordRequest{ChromID: 5, Start: 150, End: 250}
	features, err := DecodeBlock(BlockTypeSummary, b.Bytes(), 0, binary.LittleEndian, req)
	require.NoError(t, err)
	require.Len(t, features, 1)
	f := features[0]
	assert.Equal(t, int32(100), f.Start)
	assert.Equal(t, int32(200), f.End)
	assert.InDelta(t, 2.0, f.Score, 1e-6)
	assert.InDelta(t, -1.0, f.MinScore, 1e-6)
	assert.InDelta(t, 3.0, f.MaxScore, 1e-6)
	assert.True(t, f.Summary)
}

func TestSummaryDecodeFiltersOtherChrom(t *testing.T) {
	b := bigwigtest.NewBuilder(binary.LittleEndian)
	b.WriteSummaryBlock([]SummaryRecord{
		{ChromID: 6, Start: 100, End: 200, ValidCnt: 10, SumData: 20},
	})
	features, err := DecodeBlock(BlockTypeSummary, b.Bytes(), 0, binary.LittleEndian, CoordRequest{ChromID: 5, Start: 150, End: 250})
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestSummaryScoreFallbackZeroValidCnt(t *testing.T) {
	rec := SummaryRecord{SumData: 7, ValidCnt: 0}
	assert.Equal(t, float32(7), rec.Score())
}

// TestFixedStepDecodeScenarioS5 is scenario S5.
func TestFixedStepDecodeScenarioS5(t *testing.T) {
	b := bigwigtest.NewBuilder(binary.LittleEndian)
	b.WriteFixedStepBlock(0, 0, 30, 10, 5, []bigwigtest.FixedStepItem{
		{Score: 0.1}, {Score: 0.2}, {Score: 0.3},
	})

	req := CoordRequest{ChromID: 0, Start: 12, End: 14}
	features, err := DecodeBlock(BlockTypeBigWig, b.Bytes(), 0, binary.LittleEndian, req)
	require.NoError(t, err)
	require.Len(t, features, 1)
	f := features[0]
	assert.Equal(t, int32(10), f.Start)
	assert.Equal(t, int32(15), f.End)
	assert.InDelta(t, 0.2, f.Score, 1e-6)
}

func TestVarStepDecode(t *testing.T) {
	b := bigwigtest.NewBuilder(binary.LittleEndian)
	b.WriteVarStepBlock(0, 0, 100, 5, []bigwigtest.VarStepItem{
		{Start: 10, Score: 1.5},
		{Start: 50, Score: 2.5},
	})
	features, err := DecodeBlock(BlockTypeBigWig, b.Bytes(), 0, binary.LittleEndian, CoordRequest{Start: 0, End: 100})
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, int32(10), features[0].Start)
	assert.Equal(t, int32(15), features[0].End)
	assert.Equal(t, int32(50), features[1].Start)
	assert.Equal(t, int32(55), features[1].End)
}

func TestGraphDecode(t *testing.T) {
	b := bigwigtest.NewBuilder(binary.LittleEndian)
	b.WriteGraphBlock(0, 0, 100, []bigwigtest.GraphItem{
		{Start: 10, End: 20, Score: 1.5},
	})
	features, err := DecodeBlock(BlockTypeBigWig, b.Bytes(), 0, binary.LittleEndian, CoordRequest{Start: 0, End: 100})
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, int32(10), features[0].Start)
	assert.Equal(t, int32(20), features[0].End)
}

func TestBigBedDecode(t *testing.T) {
	var buf []byte
	rec := func(chrom uint32, start, end int32, rest string) []byte {
		b := make([]byte, 12+len(rest)+1)
		binary.LittleEndian.PutUint32(b[0:4], chrom)
		binary.LittleEndian.PutUint32(b[4:8], uint32(start))
		binary.LittleEndian.PutUint32(b[8:12], uint32(end))
		copy(b[12:], rest)
		return b
	}
	buf = append(buf, rec(0, 10, 20, "geneA")...)
	buf = append(buf, rec(0, 500, 600, "geneB")...)

	features, err := DecodeBlock(BlockTypeBigBed, buf, 1000, binary.LittleEndian, CoordRequest{Start: 0, End: 100})
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, int32(10), features[0].Start)
	assert.Equal(t, "geneA", string(features[0].Rest))
	assert.Equal(t, "bb-1000", features[0].UniqueID)
}

func TestUnknownBigWigBlockTypeLogsAndReturnsNoFeatures(t *testing.T) {
	b := bigwigtest.NewBuilder(binary.LittleEndian)
	off, length := b.WriteFixedStepBlock(0, 0, 30, 10, 5, []bigwigtest.FixedStepItem{{Score: 0.1}})
	buf := b.Bytes()[off : off+length]
	buf[20] = 99 // corrupt the blockType byte

	features, err := DecodeBlock(BlockTypeBigWig, buf, 0, binary.LittleEndian, CoordRequest{Start: 0, End: 100})
	require.NoError(t, err)
	assert.Empty(t, features)
}
