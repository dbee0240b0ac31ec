// Package annotate shapes raw variant documents into summaries: it picks the
// transcript consequence relevant to a lookup and derives quality and
// loss-of-function flags.
package annotate

// Consequence categories.
const (
	CategoryLoF        = "lof"
	CategoryMissense   = "missense"
	CategorySynonymous = "synonymous"
	CategoryOther      = "other"
)

// Consequence types (Sequence Ontology terms) that decide a category.
const (
	// pLoF
	ConsequenceTranscriptAblation = "transcript_ablation"
	ConsequenceSpliceAcceptor     = "splice_acceptor_variant"
	ConsequenceSpliceDonor        = "splice_donor_variant"
	ConsequenceStopGained         = "stop_gained"
	ConsequenceFrameshiftVariant  = "frameshift_variant"

	// missense and in-frame
	ConsequenceStopLost          = "stop_lost"
	ConsequenceStartLost         = "start_lost"
	ConsequenceInframeInsertion  = "inframe_insertion"
	ConsequenceInframeDeletion   = "inframe_deletion"
	ConsequenceMissenseVariant   = "missense_variant"
	ConsequenceProteinAltering   = "protein_altering_variant"
	ConsequenceSynonymousVariant = "synonymous_variant"
)

// LOFTEE confidence values. NC is the legacy marker for pLoF calls on
// non-coding transcripts.
const (
	LoFHighConfidence = "HC"
	LoFLowConfidence  = "LC"
	LoFOtherSplice    = "OS"
	LoFNonCoding      = "NC"
)

// CategoryOf returns the consequence category of a major consequence term.
func CategoryOf(term string) string {
	switch term {
	case ConsequenceTranscriptAblation, ConsequenceSpliceAcceptor,
		ConsequenceSpliceDonor, ConsequenceStopGained,
		ConsequenceFrameshiftVariant:
		return CategoryLoF
	case ConsequenceStopLost, ConsequenceStartLost,
		ConsequenceInframeInsertion, ConsequenceInframeDeletion,
		ConsequenceMissenseVariant, ConsequenceProteinAltering:
		return CategoryMissense
	case ConsequenceSynonymousVariant:
		return CategorySynonymous
	default:
		return CategoryOther
	}
}
