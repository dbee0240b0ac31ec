package annotate

import "github.com/inodb/vibe-agg/internal/variant"

// Flags returns the base flags of doc followed by the LoF flags of its
// consequences in ctx.
func Flags(doc *RawVariant, ctx variant.Context) variant.Flags {
	var flags variant.Flags
	if doc.LCR {
		flags.Add(variant.FlagLCR)
	}
	if doc.Segdup {
		flags.Add(variant.FlagSegdup)
	}
	for _, f := range LoFFlags(Scope(doc.TranscriptConsequences, ctx)) {
		flags.Add(f)
	}
	return flags
}

// LoFFlags derives LoF flags from a ranked consequence scope. The first
// element is taken as the most severe annotation.
func LoFFlags(scope []variant.TranscriptConsequence) variant.Flags {
	if len(scope) == 0 {
		return nil
	}

	var flags variant.Flags
	top := scope[0]

	var annotated []variant.TranscriptConsequence
	for _, c := range scope {
		if c.LoF != "" {
			annotated = append(annotated, c)
		}
	}

	if len(annotated) > 0 {
		anyHC := false
		allFlagged := true
		for _, c := range annotated {
			if c.LoF == LoFHighConfidence {
				anyHC = true
			}
			if c.LoFFlags == "" {
				allFlagged = false
			}
		}
		if !anyHC && top.LoF != "" {
			flags.Add(variant.FlagLCLoF)
		}
		if allFlagged {
			flags.Add(variant.FlagLoFFlag)
		}
	}

	if isNonCodingLoF(top) {
		flags.Add(variant.FlagNCTranscript)
	}
	if top.LoF == LoFOtherSplice {
		flags.Add(variant.FlagOSLoF)
	}
	return flags
}

// isNonCodingLoF reports whether c is pLoF by consequence but was not
// assessed by LOFTEE, which happens on non-coding transcripts.
func isNonCodingLoF(c variant.TranscriptConsequence) bool {
	if c.LoF == LoFNonCoding {
		return true
	}
	return c.LoF == "" && CategoryOf(c.MajorConsequence) == CategoryLoF
}
