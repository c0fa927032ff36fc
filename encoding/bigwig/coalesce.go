package bigwig

import "sort"

// defaultCoalesceGap is the maximum byte gap between two data blocks
// that still causes them to be merged into a single BlockGroup (§4.4).
const defaultCoalesceGap = 2048

// CoalesceOptions configures BlockCoalescer. The zero value selects
// defaultCoalesceGap.
type CoalesceOptions struct {
	// MaxGap is the largest offset gap, in bytes, between consecutive
	// blocks that still get merged into the same group. Zero selects
	// defaultCoalesceGap.
	MaxGap uint64
}

func (o CoalesceOptions) maxGap() uint64 {
	if o.MaxGap == 0 {
		return defaultCoalesceGap
	}
	return o.MaxGap
}

// CoalesceBlocks sorts blocks by offset and merges consecutive blocks
// separated by at most opts.MaxGap bytes into BlockGroups (§4.4),
// trading a bounded amount of wasted bytes for fewer backing reads.
func CoalesceBlocks(blocks []DataBlockDescriptor, opts CoalesceOptions) []BlockGroup {
	if len(blocks) == 0 {
		return nil
	}
	sorted := make([]DataBlockDescriptor, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	maxGap := opts.maxGap()
	var groups []BlockGroup
	cur := BlockGroup{
		Offset: sorted[0].Offset,
		Length: sorted[0].Length,
		Blocks: []DataBlockDescriptor{sorted[0]},
	}
	for _, next := range sorted[1:] {
		curEnd := cur.Offset + cur.Length
		mergeable := next.Offset <= curEnd || next.Offset-curEnd <= maxGap
		if mergeable {
			end := next.Offset + next.Length
			if end > curEnd {
				cur.Length = end - cur.Offset
			}
			cur.Blocks = append(cur.Blocks, next)
			continue
		}
		groups = append(groups, cur)
		cur = BlockGroup{Offset: next.Offset, Length: next.Length, Blocks: []DataBlockDescriptor{next}}
	}
	groups = append(groups, cur)
	return groups
}
