// Package mnv flags variants that are constituents of a phased
// multi-nucleotide variant.
package mnv

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/inodb/vibe-agg/internal/region"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// lookBehind is how far an MNV's stored position may precede one of its
// constituents. The stored position is that of the first constituent.
const lookBehind = 2

// Record is an MNV document.
type Record struct {
	VariantID    string   `mapstructure:"variant_id"`
	XPos         int64    `mapstructure:"xpos"`
	Constituents []string `mapstructure:"constituents"`
}

// Decode decodes MNV documents from search hits.
func Decode(hits []search.Hit) ([]Record, error) {
	records := make([]Record, 0, len(hits))
	for _, h := range hits {
		var rec Record
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &rec,
		})
		if err != nil {
			return nil, fmt.Errorf("create decoder: %w", err)
		}
		if err := dec.Decode(h.Source); err != nil {
			return nil, fmt.Errorf("decode mnv %s: %w", h.ID, err)
		}
		if rec.VariantID == "" {
			rec.VariantID = h.ID
		}
		records = append(records, rec)
	}
	return records, nil
}

// ScopeIntervals returns the intervals to search for MNVs touching variants
// inside intervals.
func ScopeIntervals(intervals []region.Interval) []region.Interval {
	out := make([]region.Interval, len(intervals))
	for i, iv := range intervals {
		out[i] = iv.Extend(lookBehind, 0)
	}
	return out
}

// Annotate adds the mnv flag to every variant that is a constituent of one
// of records, and lists the MNVs it belongs to. Order is not changed.
// It returns the number of variants flagged.
func Annotate(variants []*variant.Summary, records []Record) int {
	if len(records) == 0 {
		return 0
	}

	memberOf := make(map[string][]string)
	for _, r := range records {
		for _, c := range r.Constituents {
			memberOf[c] = append(memberOf[c], r.VariantID)
		}
	}

	flagged := 0
	for _, v := range variants {
		mnvs, ok := memberOf[v.VariantID]
		if !ok {
			continue
		}
		v.Flags.Add(variant.FlagMNV)
		for _, id := range mnvs {
			if !contains(v.MultiNucleotideVariants, id) {
				v.MultiNucleotideVariants = append(v.MultiNucleotideVariants, id)
			}
		}
		sort.Strings(v.MultiNucleotideVariants)
		flagged++
	}
	return flagged
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
