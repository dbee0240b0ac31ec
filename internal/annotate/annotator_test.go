package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// pcsk9Source is a variant document as decoded from JSON.
func pcsk9Source() map[string]interface{} {
	return map[string]interface{}{
		"variant_id":       "1-55516888-G-GA",
		"reference_genome": "GRCh37",
		"chrom":            "1",
		"pos":              float64(55516888),
		"xpos":             float64(1055516888),
		"ref":              "G",
		"alt":              "GA",
		"rsids":            []interface{}{"rs527413419"},
		"lcr":              false,
		"segdup":           true,
		"filters":          []interface{}{"AC0"},
		"gene_ids":         []interface{}{"ENSG00000169174"},
		"transcript_consequences": []interface{}{
			map[string]interface{}{
				"gene_id":           "ENSG00000169174",
				"gene_symbol":       "PCSK9",
				"transcript_id":     "ENST00000302118",
				"consequence_terms": []interface{}{"frameshift_variant"},
				"major_consequence": "frameshift_variant",
				"canonical":         true,
				"lof":               "LC",
				"lof_flags":         "",
				"lof_filter":        "END_TRUNC",
				"hgvsc":             "c.89dupA",
				"hgvsp":             "p.Leu31ThrfsTer9",
			},
		},
		"freq": map[string]interface{}{
			"all": map[string]interface{}{
				"ac":               float64(2),
				"an":               float64(8),
				"homozygote_count": float64(0),
				"hemizygote_count": float64(0),
				"populations": []interface{}{
					map[string]interface{}{"id": "nfe", "ac": float64(2), "an": float64(4)},
				},
			},
			"non_neuro": map[string]interface{}{
				"ac": float64(1),
				"an": float64(4),
			},
		},
	}
}

func TestDecodeVariant(t *testing.T) {
	doc, err := DecodeVariant(pcsk9Source())
	require.NoError(t, err)

	assert.Equal(t, "1-55516888-G-GA", doc.VariantID)
	assert.Equal(t, int64(55516888), doc.Pos)
	assert.Equal(t, int64(1055516888), doc.XPos)
	assert.True(t, doc.Segdup)
	assert.Equal(t, []string{"rs527413419"}, doc.RSIDs)
	require.Len(t, doc.TranscriptConsequences, 1)
	assert.Equal(t, "LC", doc.TranscriptConsequences[0].LoF)
	assert.True(t, doc.TranscriptConsequences[0].Canonical)
	assert.Equal(t, int64(2), doc.Freq["all"].AC)
	require.Len(t, doc.Freq["all"].Populations, 1)
	assert.Equal(t, "nfe", doc.Freq["all"].Populations[0].ID)
}

func TestDecodeVariant_DerivesMissingID(t *testing.T) {
	doc, err := DecodeVariant(map[string]interface{}{
		"chrom": "2", "pos": float64(10), "ref": "A", "alt": "T",
	})
	require.NoError(t, err)
	assert.Equal(t, "2-10-A-T", doc.VariantID)
}

func TestDecodeVariant_BadType(t *testing.T) {
	_, err := DecodeVariant(map[string]interface{}{"transcript_consequences": "oops"})
	assert.Error(t, err)
}

func TestShape_Exome(t *testing.T) {
	doc, err := DecodeVariant(pcsk9Source())
	require.NoError(t, err)

	s := NewShaper(dataset.SubsetAll)
	sum := s.Shape(doc, variant.Gene("ENSG00000169174"), dataset.Exome)

	assert.Equal(t, "1-55516888-G-GA", sum.VariantID)
	assert.Equal(t, "frameshift_variant", sum.Consequence)
	assert.Equal(t, "PCSK9", sum.GeneSymbol)
	assert.Equal(t, "ENST00000302118", sum.TranscriptID)
	assert.Equal(t, "p.Leu31ThrfsTer9", sum.HGVSp)
	assert.Equal(t, "END_TRUNC", sum.LoFFilter)
	assert.Equal(t, variant.Flags{variant.FlagSegdup, variant.FlagLCLoF}, sum.Flags)

	require.NotNil(t, sum.Exome)
	assert.Nil(t, sum.Genome)
	assert.Equal(t, int64(2), sum.Exome.AC)
	assert.Equal(t, int64(8), sum.Exome.AN)
	assert.InDelta(t, 0.25, sum.Exome.AF, 1e-12)
	assert.Equal(t, []string{"AC0"}, sum.Exome.Filters)
}

func TestShape_SubsetAndGenome(t *testing.T) {
	doc, err := DecodeVariant(pcsk9Source())
	require.NoError(t, err)

	s := NewShaper(dataset.SubsetNonNeuro)
	sum := s.Shape(doc, variant.Gene("ENSG_OTHER"), dataset.Genome)

	require.NotNil(t, sum.Genome)
	assert.Nil(t, sum.Exome)
	assert.Equal(t, int64(1), sum.Genome.AC)
	assert.Equal(t, int64(4), sum.Genome.AN)
	// No consequence for an unrelated gene, and no LoF flags either.
	assert.Empty(t, sum.Consequence)
	assert.Equal(t, variant.Flags{variant.FlagSegdup}, sum.Flags)
}

func TestShape_MissingSubsetIsZero(t *testing.T) {
	doc, err := DecodeVariant(pcsk9Source())
	require.NoError(t, err)

	sum := NewShaper(dataset.SubsetControls).Shape(doc, variant.Region(), dataset.Exome)
	require.NotNil(t, sum.Exome)
	assert.Zero(t, sum.Exome.AC)
	assert.Zero(t, sum.Exome.AF)
}

func TestShapeAll_PreservesOrder(t *testing.T) {
	var hits []search.Hit
	for i := 0; i < 100; i++ {
		src := pcsk9Source()
		src["pos"] = float64(1000 + i)
		delete(src, "variant_id")
		hits = append(hits, search.Hit{ID: "h", Source: src})
	}

	s := NewShaper(dataset.SubsetAll)
	s.SetWorkers(4)
	out, err := s.ShapeAll(hits, variant.Region(), dataset.Genome)
	require.NoError(t, err)
	require.Len(t, out, 100)
	for i, sum := range out {
		assert.Equal(t, int64(1000+i), sum.Pos)
		assert.NotNil(t, sum.Genome)
	}
}

func TestShapeAll_DecodeError(t *testing.T) {
	hits := []search.Hit{
		{ID: "ok", Source: pcsk9Source()},
		{ID: "bad", Source: map[string]interface{}{"pos": "not a number"}},
	}
	_, err := NewShaper(dataset.SubsetAll).ShapeAll(hits, variant.Region(), dataset.Exome)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestShapeAll_Empty(t *testing.T) {
	out, err := NewShaper(dataset.SubsetAll).ShapeAll(nil, variant.Region(), dataset.Exome)
	require.NoError(t, err)
	assert.Empty(t, out)
}
