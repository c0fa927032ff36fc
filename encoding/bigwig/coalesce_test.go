package bigwig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCoalesceScenarioS3 is scenario S3 from the design notes: blocks
// at offsets 1000(len 200), 1300(len 100), 10000(len 50) coalesce into
// exactly two groups.
func TestCoalesceScenarioS3(t *testing.T) {
	blocks := []DataBlockDescriptor{
		{Offset: 1000, Length: 200},
		{Offset: 1300, Length: 100},
		{Offset: 10000, Length: 50},
	}
	groups := CoalesceBlocks(blocks, CoalesceOptions{})
	require := assert.New(t)
	require.Len(groups, 2)
	require.Equal(BlockGroup{
		Offset: 1000,
		Length: 400,
		Blocks: []DataBlockDescriptor{{Offset: 1000, Length: 200}, {Offset: 1300, Length: 100}},
	}, groups[0])
	require.Equal(BlockGroup{
		Offset: 10000,
		Length: 50,
		Blocks: []DataBlockDescriptor{{Offset: 10000, Length: 50}},
	}, groups[1])
}

func TestCoalesceUnsortedInput(t *testing.T) {
	blocks := []DataBlockDescriptor{
		{Offset: 10000, Length: 50},
		{Offset: 1000, Length: 200},
	}
	groups := CoalesceBlocks(blocks, CoalesceOptions{})
	assert.Len(t, groups, 2)
	assert.Equal(t, uint64(1000), groups[0].Offset)
	assert.Equal(t, uint64(10000), groups[1].Offset)
}

func TestCoalescePreservesCoverageAndGapBound(t *testing.T) {
	blocks := []DataBlockDescriptor{
		{Offset: 0, Length: 10},
		{Offset: 12, Length: 5},   // gap 2, merges
		{Offset: 2100, Length: 5}, // gap > 2048 from prior end (17), new group
	}
	groups := CoalesceBlocks(blocks, CoalesceOptions{})
	require := assert.New(t)
	require.Len(groups, 2)
	for _, b := range blocks[:2] {
		require.Contains(groups[0].Blocks, b)
		require.True(groups[0].Offset <= b.Offset)
		require.True(b.Offset+b.Length <= groups[0].Offset+groups[0].Length)
	}
}

func TestCoalesceEmpty(t *testing.T) {
	assert.Nil(t, CoalesceBlocks(nil, CoalesceOptions{}))
}

func TestCoalesceCustomGap(t *testing.T) {
	blocks := []DataBlockDescriptor{
		{Offset: 0, Length: 10},
		{Offset: 20, Length: 10}, // gap 10
	}
	assert.Len(t, CoalesceBlocks(blocks, CoalesceOptions{MaxGap: 5}), 2)
	assert.Len(t, CoalesceBlocks(blocks, CoalesceOptions{MaxGap: 20}), 1)
}
