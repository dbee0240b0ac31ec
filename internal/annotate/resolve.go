package annotate

import "github.com/inodb/vibe-agg/internal/variant"

// Resolve returns the consequence that applies to ctx: the first entry of
// the gene (gene context), the first entry overall (region context) or the
// first entry of the transcript (transcript context). It returns nil when
// nothing matches.
func Resolve(csqs []variant.TranscriptConsequence, ctx variant.Context) *variant.TranscriptConsequence {
	for i := range csqs {
		switch ctx.Kind {
		case variant.GeneContext:
			if csqs[i].GeneID == ctx.GeneID {
				return &csqs[i]
			}
		case variant.TranscriptContext:
			if csqs[i].TranscriptID == ctx.TranscriptID {
				return &csqs[i]
			}
		default:
			return &csqs[i]
		}
	}
	return nil
}

// Scope returns the consequences considered for LoF flags in ctx, in input
// order: those of the gene, all of them, or the single matching transcript.
func Scope(csqs []variant.TranscriptConsequence, ctx variant.Context) []variant.TranscriptConsequence {
	switch ctx.Kind {
	case variant.GeneContext:
		var scoped []variant.TranscriptConsequence
		for _, c := range csqs {
			if c.GeneID == ctx.GeneID {
				scoped = append(scoped, c)
			}
		}
		return scoped
	case variant.TranscriptContext:
		if c := Resolve(csqs, ctx); c != nil {
			return []variant.TranscriptConsequence{*c}
		}
		return nil
	default:
		return csqs
	}
}
