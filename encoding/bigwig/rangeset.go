package bigwig

import "sort"

// Range is a closed interval [Min, Max] of uint64 positions, as used by
// RangeSet (§3). Unlike the half-open CoordRequest, Max is inclusive.
type Range struct {
	Min uint64
	Max uint64
}

// RangeSet is a sorted, disjoint sequence of Ranges, stored as a flat
// length-2N array (posns[2k], posns[2k+1] = the k'th range's Min, Max)
// in the style of grailbio-bio's interval.BEDUnion, which is not part of
// this repository: it reuses plain binary search over a
// []uint64 instead of a slice of structs, and keeps union/intersection
// as simple linear merges.
//
// Invariant: for consecutive ranges, posns[2k+1]+1 < posns[2k+2]; a
// RangeSet never contains two ranges that touch or overlap.
type RangeSet struct {
	posns []uint64
}

// NewRangeSet builds a RangeSet containing the single range [min, max].
func NewRangeSet(min, max uint64) RangeSet {
	if max < min {
		min, max = max, min
	}
	return RangeSet{posns: []uint64{min, max}}
}

// Ranges returns the ordered, disjoint sequence of Ranges.
func (s RangeSet) Ranges() []Range {
	out := make([]Range, 0, len(s.posns)/2)
	for i := 0; i < len(s.posns); i += 2 {
		out = append(out, Range{Min: s.posns[i], Max: s.posns[i+1]})
	}
	return out
}

// Contains reports whether pos falls within some range of s.
func (s RangeSet) Contains(pos uint64) bool {
	// idx is the first index i whose boundary lies at or past pos: a
	// Min (even i) strictly greater than pos, or a Max (odd i) greater
	// than or equal to pos, since Max is inclusive.
	idx := sort.Search(len(s.posns), func(i int) bool {
		if i%2 == 0 {
			return s.posns[i] > pos
		}
		return s.posns[i] >= pos
	})
	// idx odd means pos fell inside [posns[idx-1], posns[idx]], i.e.
	// between a range's Min and its Max.
	return idx%2 == 1
}

// Union merges s with other, combining ranges that overlap or touch
// (a.Max+1 >= b.Min), and returns the result as a new, independent
// RangeSet.
func (s RangeSet) Union(other RangeSet) RangeSet {
	merged := mergeSortedRanges(s.Ranges(), other.Ranges())
	return RangeSet{posns: flattenRanges(merged)}
}

// Intersection computes the standard two-pointer intersection of s and
// other. ok is false if the result would be empty (EmptyIntersection).
func (s RangeSet) Intersection(other RangeSet) (result RangeSet, ok bool) {
	a, b := s.Ranges(), other.Ranges()
	var out []Range
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := a[i].Min
		if b[j].Min > lo {
			lo = b[j].Min
		}
		hi := a[i].Max
		if b[j].Max < hi {
			hi = b[j].Max
		}
		if lo <= hi {
			out = append(out, Range{Min: lo, Max: hi})
		}
		if a[i].Max < b[j].Max {
			i++
		} else {
			j++
		}
	}
	if len(out) == 0 {
		return RangeSet{}, false
	}
	return RangeSet{posns: flattenRanges(out)}, true
}

func flattenRanges(rs []Range) []uint64 {
	posns := make([]uint64, 0, len(rs)*2)
	for _, r := range rs {
		posns = append(posns, r.Min, r.Max)
	}
	return posns
}

// mergeSortedRanges merges two already-sorted, disjoint Range slices,
// coalescing any pair that overlaps or is separated by a gap of zero
// (a.Max+1 == b.Min).
func mergeSortedRanges(a, b []Range) []Range {
	all := make([]Range, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	sort.Slice(all, func(i, j int) bool { return all[i].Min < all[j].Min })

	out := make([]Range, 0, len(all))
	for _, r := range all {
		if n := len(out); n > 0 && r.Min <= out[n-1].Max+1 {
			if r.Max > out[n-1].Max {
				out[n-1].Max = r.Max
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
