// Package merge interleaves the per-modality variant lists of one lookup
// into a single list ordered by (pos, variant ID).
package merge

import (
	"sort"

	"github.com/inodb/vibe-agg/internal/variant"
)

// Merge combines exome and genome summaries. Both inputs must be sorted by
// (pos, variant ID) and unique by variant ID. A variant present in both
// appears once, carrying the exome summary with the genome data attached and
// the flags of both sides. Inputs are not modified.
func Merge(exome, genome []*variant.Summary) []*variant.Summary {
	out := make([]*variant.Summary, 0, len(exome)+len(genome))

	i, j := 0, 0
	for i < len(exome) && j < len(genome) {
		pe, pg := exome[i].Pos, genome[j].Pos
		switch {
		case pe < pg:
			out = append(out, exome[i])
			i++
		case pg < pe:
			out = append(out, genome[j])
			j++
		default:
			ie := runEnd(exome, i)
			jg := runEnd(genome, j)
			out = zip(out, exome[i:ie], genome[j:jg])
			i, j = ie, jg
		}
	}
	out = append(out, exome[i:]...)
	out = append(out, genome[j:]...)
	return out
}

// runEnd returns the end of the run of summaries sharing the position of
// list[start].
func runEnd(list []*variant.Summary, start int) int {
	end := start + 1
	for end < len(list) && list[end].Pos == list[start].Pos {
		end++
	}
	return end
}

// zip appends the union of two same-position runs to out, ordered by ID.
func zip(out, exome, genome []*variant.Summary) []*variant.Summary {
	exome = byID(exome)
	genome = byID(genome)

	i, j := 0, 0
	for i < len(exome) && j < len(genome) {
		e, g := exome[i], genome[j]
		switch {
		case e.VariantID < g.VariantID:
			out = append(out, e)
			i++
		case g.VariantID < e.VariantID:
			out = append(out, g)
			j++
		default:
			out = append(out, combine(e, g))
			i++
			j++
		}
	}
	out = append(out, exome[i:]...)
	out = append(out, genome[j:]...)
	return out
}

// byID returns run ordered by variant ID, copying only when it is not
// already in order.
func byID(run []*variant.Summary) []*variant.Summary {
	if len(run) < 2 {
		return run
	}
	less := func(a, b int) bool { return run[a].VariantID < run[b].VariantID }
	if sort.SliceIsSorted(run, less) {
		return run
	}
	sorted := append([]*variant.Summary(nil), run...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].VariantID < sorted[b].VariantID })
	return sorted
}

// combine returns a copy of the exome summary with the genome data attached.
func combine(e, g *variant.Summary) *variant.Summary {
	merged := *e
	merged.Genome = g.Genome
	merged.Flags = e.Flags.Union(g.Flags)
	return &merged
}
