package variant

// ContextKind identifies what a lookup was scoped to.
type ContextKind int

const (
	RegionContext ContextKind = iota
	GeneContext
	TranscriptContext
)

// String returns the context kind name.
func (k ContextKind) String() string {
	switch k {
	case GeneContext:
		return "gene"
	case TranscriptContext:
		return "transcript"
	default:
		return "region"
	}
}

// Context selects which transcript consequences apply to a variant and
// which flag rules fire.
type Context struct {
	Kind         ContextKind
	GeneID       string
	TranscriptID string
}

// Gene returns a gene context.
func Gene(geneID string) Context {
	return Context{Kind: GeneContext, GeneID: geneID}
}

// Region returns a region context.
func Region() Context {
	return Context{Kind: RegionContext}
}

// Transcript returns a transcript context.
func Transcript(transcriptID string) Context {
	return Context{Kind: TranscriptContext, TranscriptID: transcriptID}
}

// String returns a stable textual form, e.g. "gene:ENSG00000169174".
func (c Context) String() string {
	switch c.Kind {
	case GeneContext:
		return "gene:" + c.GeneID
	case TranscriptContext:
		return "transcript:" + c.TranscriptID
	default:
		return "region"
	}
}
