// Package variant defines the aggregated variant model returned by lookups.
package variant

import "strconv"

// Flag values attached to a Summary.
const (
	FlagLCR          = "lcr"
	FlagSegdup       = "segdup"
	FlagLCLoF        = "lc_lof"
	FlagLoFFlag      = "lof_flag"
	FlagNCTranscript = "nc_transcript"
	FlagOSLoF        = "os_lof"
	FlagMNV          = "mnv"
)

// Population holds allele counts for one ancestry group.
type Population struct {
	ID              string `json:"id" mapstructure:"id"`
	AC              int64  `json:"ac" mapstructure:"ac"`
	AN              int64  `json:"an" mapstructure:"an"`
	HomozygoteCount int64  `json:"homozygote_count" mapstructure:"homozygote_count"`
	HemizygoteCount int64  `json:"hemizygote_count" mapstructure:"hemizygote_count"`
}

// SequencingData holds the allele counts observed in one sequencing modality.
type SequencingData struct {
	AC              int64        `json:"ac"`
	AN              int64        `json:"an"`
	AF              float64      `json:"af"`
	HomozygoteCount int64        `json:"homozygote_count"`
	HemizygoteCount int64        `json:"hemizygote_count"`
	Filters         []string     `json:"filters"`
	Populations     []Population `json:"populations"`
}

// TranscriptConsequence is the predicted effect of a variant on one
// transcript. Lists of consequences arrive ranked most severe first.
type TranscriptConsequence struct {
	GeneID           string   `json:"gene_id" mapstructure:"gene_id"`
	GeneSymbol       string   `json:"gene_symbol,omitempty" mapstructure:"gene_symbol"`
	TranscriptID     string   `json:"transcript_id" mapstructure:"transcript_id"`
	ConsequenceTerms []string `json:"consequence_terms" mapstructure:"consequence_terms"`
	MajorConsequence string   `json:"major_consequence" mapstructure:"major_consequence"`
	Canonical        bool     `json:"canonical" mapstructure:"canonical"`
	LoF              string   `json:"lof,omitempty" mapstructure:"lof"`
	LoFFlags         string   `json:"lof_flags,omitempty" mapstructure:"lof_flags"`
	LoFFilter        string   `json:"lof_filter,omitempty" mapstructure:"lof_filter"`
	HGVSc            string   `json:"hgvsc,omitempty" mapstructure:"hgvsc"`
	HGVSp            string   `json:"hgvsp,omitempty" mapstructure:"hgvsp"`
}

// Summary is one aggregated variant. Exome and Genome are nil when the
// variant was not observed in that modality; they are never both nil.
type Summary struct {
	VariantID       string   `json:"variant_id"`
	ReferenceGenome string   `json:"reference_genome"`
	Chrom           string   `json:"chrom"`
	Pos             int64    `json:"pos"`
	Ref             string   `json:"ref"`
	Alt             string   `json:"alt"`
	RSIDs           []string `json:"rsids,omitempty"`

	Consequence  string `json:"consequence,omitempty"`
	GeneID       string `json:"gene_id,omitempty"`
	GeneSymbol   string `json:"gene_symbol,omitempty"`
	TranscriptID string `json:"transcript_id,omitempty"`
	HGVSc        string `json:"hgvsc,omitempty"`
	HGVSp        string `json:"hgvsp,omitempty"`
	LoF          string `json:"lof,omitempty"`
	LoFFilter    string `json:"lof_filter,omitempty"`
	LoFFlags     string `json:"lof_flags,omitempty"`

	Flags                   Flags    `json:"flags"`
	MultiNucleotideVariants []string `json:"multi_nucleotide_variants,omitempty"`

	Exome  *SequencingData `json:"exome"`
	Genome *SequencingData `json:"genome"`
}

// Less orders summaries by position, then by variant ID.
func Less(a, b *Summary) bool {
	if a.Pos != b.Pos {
		return a.Pos < b.Pos
	}
	return a.VariantID < b.VariantID
}

// FormatVariantID creates a variant identifier (chrom-pos-ref-alt).
func FormatVariantID(chrom string, pos int64, ref, alt string) string {
	return chrom + "-" + strconv.FormatInt(pos, 10) + "-" + ref + "-" + alt
}

// AlleleFrequency returns ac/an, or 0 when an is 0.
func AlleleFrequency(ac, an int64) float64 {
	if an == 0 {
		return 0
	}
	return float64(ac) / float64(an)
}
