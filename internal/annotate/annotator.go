package annotate

import (
	"fmt"
	"runtime"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// RawFrequency holds the counts of one cohort subset in a variant document.
type RawFrequency struct {
	AC              int64                `mapstructure:"ac"`
	AN              int64                `mapstructure:"an"`
	HomozygoteCount int64                `mapstructure:"homozygote_count"`
	HemizygoteCount int64                `mapstructure:"hemizygote_count"`
	Populations     []variant.Population `mapstructure:"populations"`
}

// RawVariant is a variant document as stored in a modality's index.
type RawVariant struct {
	VariantID       string   `mapstructure:"variant_id"`
	ReferenceGenome string   `mapstructure:"reference_genome"`
	Chrom           string   `mapstructure:"chrom"`
	Pos             int64    `mapstructure:"pos"`
	XPos            int64    `mapstructure:"xpos"`
	Ref             string   `mapstructure:"ref"`
	Alt             string   `mapstructure:"alt"`
	RSIDs           []string `mapstructure:"rsids"`
	LCR             bool     `mapstructure:"lcr"`
	Segdup          bool     `mapstructure:"segdup"`
	Filters         []string `mapstructure:"filters"`

	TranscriptConsequences []variant.TranscriptConsequence `mapstructure:"transcript_consequences"`

	// Freq is keyed by dataset.Subset name.
	Freq map[string]RawFrequency `mapstructure:"freq"`
}

// DecodeVariant decodes a document source into a RawVariant.
func DecodeVariant(source map[string]interface{}) (*RawVariant, error) {
	var raw RawVariant
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(source); err != nil {
		return nil, fmt.Errorf("decode variant: %w", err)
	}
	if raw.VariantID == "" {
		raw.VariantID = variant.FormatVariantID(raw.Chrom, raw.Pos, raw.Ref, raw.Alt)
	}
	return &raw, nil
}

// Shaper turns raw variant documents into summaries for one cohort subset.
type Shaper struct {
	subset  dataset.Subset
	workers int
	logger  *zap.Logger
}

// NewShaper creates a shaper reading counts of the given subset.
func NewShaper(subset dataset.Subset) *Shaper {
	return &Shaper{
		subset: subset,
		logger: zap.NewNop(),
	}
}

// SetWorkers sets the number of decoding workers used by ShapeAll.
// If n is 0, runtime.NumCPU() is used.
func (s *Shaper) SetWorkers(n int) {
	s.workers = n
}

// SetLogger sets the logger for debug messages.
func (s *Shaper) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Shape builds the summary of doc as observed in modality m.
func (s *Shaper) Shape(doc *RawVariant, ctx variant.Context, m dataset.Modality) *variant.Summary {
	sum := &variant.Summary{
		VariantID:       doc.VariantID,
		ReferenceGenome: doc.ReferenceGenome,
		Chrom:           doc.Chrom,
		Pos:             doc.Pos,
		Ref:             doc.Ref,
		Alt:             doc.Alt,
		RSIDs:           doc.RSIDs,
		Flags:           Flags(doc, ctx),
	}

	if c := Resolve(doc.TranscriptConsequences, ctx); c != nil {
		sum.Consequence = c.MajorConsequence
		sum.GeneID = c.GeneID
		sum.GeneSymbol = c.GeneSymbol
		sum.TranscriptID = c.TranscriptID
		sum.HGVSc = c.HGVSc
		sum.HGVSp = c.HGVSp
		sum.LoF = c.LoF
		sum.LoFFilter = c.LoFFilter
		sum.LoFFlags = c.LoFFlags
	}

	freq, ok := doc.Freq[s.subset.String()]
	if !ok {
		s.logger.Debug("variant has no counts for subset",
			zap.String("variant_id", doc.VariantID),
			zap.String("subset", s.subset.String()))
	}
	data := &variant.SequencingData{
		AC:              freq.AC,
		AN:              freq.AN,
		AF:              variant.AlleleFrequency(freq.AC, freq.AN),
		HomozygoteCount: freq.HomozygoteCount,
		HemizygoteCount: freq.HemizygoteCount,
		Filters:         doc.Filters,
		Populations:     freq.Populations,
	}
	if data.Filters == nil {
		data.Filters = []string{}
	}

	if m == dataset.Genome {
		sum.Genome = data
	} else {
		sum.Exome = data
	}
	return sum
}

// ShapeAll decodes and shapes hits in parallel, preserving input order.
func (s *Shaper) ShapeAll(hits []search.Hit, ctx variant.Context, m dataset.Modality) ([]*variant.Summary, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	workers := s.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	go func() {
		defer close(items)
		for i, h := range hits {
			items <- WorkItem{Seq: i, Hit: h}
		}
	}()

	out := make([]*variant.Summary, 0, len(hits))
	err := OrderedCollect(s.ParallelShape(items, workers, ctx, m), func(r WorkResult) error {
		if r.Err != nil {
			return fmt.Errorf("shape %s document %s: %w", m, r.Hit.ID, r.Err)
		}
		out = append(out, r.Summary)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
