package region

import "sort"

// DefaultPadding is the number of bases added on each side of exon
// features before merging.
const DefaultPadding = 75

// Merge pads every interval by padding bases and merges the result into
// a minimal, sorted set of non-overlapping, non-adjacent intervals.
// The input slice is not modified.
func Merge(intervals []Interval, padding int64) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	for i, iv := range intervals {
		sorted[i] = iv.Pad(padding)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].XStart < sorted[j].XStart
	})

	merged := []Interval{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		// Adjacent intervals are merged as well as overlapping ones.
		if next.XStart <= cur.XStop+1 {
			if next.XStop > cur.XStop {
				cur.Stop += next.XStop - cur.XStop
				cur.XStop = next.XStop
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}
