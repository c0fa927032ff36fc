package bigwig

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/bigwig/encoding/bigwig/bigwigtest"
)

type collectingObserver struct {
	mu       sync.Mutex
	batches  [][]Feature
	complete bool
	err      error
}

func (o *collectingObserver) Next(features []Feature) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, features)
}
func (o *collectingObserver) Complete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.complete = true
}
func (o *collectingObserver) Error(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *collectingObserver) features() []Feature {
	o.mu.Lock()
	defer o.mu.Unlock()
	var all []Feature
	for _, b := range o.batches {
		all = append(all, b...)
	}
	return all
}

func TestReadWigDataScenarioS1EmptyReference(t *testing.T) {
	header := Header{
		CirTreeOffset: 0,
		CirTreeLength: 48,
		BlockType:     BlockTypeSummary,
		RefsByName:    map[string]uint32{},
	}
	order := binary.LittleEndian
	b := bigwigtest.NewBuilder(order)
	b.WriteCirHeader(4)
	reader := &bigwigtest.FakeReader{Data: b.Bytes()}

	qe, err := NewQueryEngine(reader, header, nil)
	require.NoError(t, err)

	obs := &collectingObserver{}
	err = qe.ReadWigData(context.Background(), "chr1", 0, 1000, obs, QueryOptions{})
	require.NoError(t, err)
	assert.True(t, obs.complete)
	assert.Nil(t, obs.err)
	assert.Empty(t, obs.batches)
}

func TestReadWigDataSummaryEndToEnd(t *testing.T) {
	order := binary.LittleEndian
	header := Header{
		CirTreeOffset: 0,
		CirTreeLength: 48,
		BlockType:     BlockTypeSummary,
		RefsByName:    map[string]uint32{"chr1": 0},
	}

	reader := &bigwigtest.FakeReader{Data: rebuildWithRootAtHeaderEnd(t, order, header.CirTreeOffset)}
	qe, err := NewQueryEngine(reader, header, nil)
	require.NoError(t, err)

	obs := &collectingObserver{}
	err = qe.ReadWigData(context.Background(), "chr1", 150, 250, obs, QueryOptions{})
	require.NoError(t, err)
	assert.True(t, obs.complete)
	assert.Nil(t, obs.err)

	features := obs.features()
	require.Len(t, features, 1)
	assert.Equal(t, int32(100), features[0].Start)
	assert.Equal(t, int32(200), features[0].End)
	assert.InDelta(t, 2.0, features[0].Score, 1e-6)
}

// rebuildWithRootAtHeaderEnd builds a fresh, correctly-laid-out file:
// CIR header, then immediately the root leaf node (as ReadWigData
// expects at cirTreeOffset+48), then the summary block it points to.
func rebuildWithRootAtHeaderEnd(t *testing.T, order binary.ByteOrder, cirOff uint64) []byte {
	t.Helper()
	b := bigwigtest.NewBuilder(order)
	gotCirOff := b.WriteCirHeader(4)
	require.Equal(t, cirOff, gotCirOff)

	// The leaf node must sit at cirOff+48, with the block appended
	// directly after it.
	nodeOff := b.Len()
	require.EqualValues(t, cirOff+48, nodeOff)

	// Write the leaf with one entry; the block offset is computed in
	// advance from where the block will land right after this node.
	const leafBytes = 4 + 32
	blockOff := uint64(nodeOff + leafBytes)
	rec := SummaryRecord{ChromID: 0, Start: 100, End: 200, ValidCnt: 10, MinScore: -1, MaxScore: 3, SumData: 20, SumSqData: 50}

	b.WriteLeafNode([]bigwigtest.LeafEntryInput{
		{StartChrom: 0, StartBase: 0, EndChrom: 0, EndBase: 1000, BlockOffset: blockOff, BlockSize: summaryRecordSize},
	})
	actualBlockOff, blockLen := b.WriteSummaryBlock([]SummaryRecord{rec})
	require.EqualValues(t, blockOff, actualBlockOff)
	require.EqualValues(t, summaryRecordSize, blockLen)

	return b.Bytes()
}

// TestReadWigDataCancellationScenarioS6 covers the cancellation rule of
// scenario S6 with the context cancelled before the query starts,
// rather than after the first Next: the two-group fixture is never
// fetched, and the observer must see no terminal callback.
func TestReadWigDataCancellationScenarioS6(t *testing.T) {
	order := binary.LittleEndian
	b := bigwigtest.NewBuilder(order)
	cirOff := b.WriteCirHeader(4)

	nodeOff := b.Len()
	require.EqualValues(t, cirOff+48, nodeOff)

	const leafBytes = 4 + 2*32
	block1Off := uint64(nodeOff + leafBytes)
	rec := SummaryRecord{ChromID: 0, Start: 0, End: 10, ValidCnt: 1, SumData: 1}
	block2Off := block1Off + summaryRecordSize + 5000 // force a second, non-coalesced group

	b.WriteLeafNode([]bigwigtest.LeafEntryInput{
		{StartChrom: 0, StartBase: 0, EndChrom: 0, EndBase: 10, BlockOffset: block1Off, BlockSize: summaryRecordSize},
		{StartChrom: 0, StartBase: 900, EndChrom: 0, EndBase: 910, BlockOffset: block2Off, BlockSize: summaryRecordSize},
	})
	b.Pad(int(block1Off) - b.Len())
	b.WriteSummaryBlock([]SummaryRecord{rec})
	b.Pad(int(block2Off) - b.Len())
	b.WriteSummaryBlock([]SummaryRecord{{ChromID: 0, Start: 900, End: 910, ValidCnt: 1, SumData: 1}})

	header := Header{
		CirTreeOffset: cirOff,
		CirTreeLength: 48,
		BlockType:     BlockTypeSummary,
		RefsByName:    map[string]uint32{"chr1": 0},
	}
	reader := &bigwigtest.FakeReader{Data: b.Bytes()}
	qe, err := NewQueryEngine(reader, header, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	obs := &collectingObserver{}
	cancel() // cancel before the query even starts: no callbacks beyond what's already in flight
	err = qe.ReadWigData(ctx, "chr1", 0, 1000, obs, QueryOptions{})
	require.NoError(t, err)
	assert.False(t, obs.complete)
	assert.Nil(t, obs.err)
}
