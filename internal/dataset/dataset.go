// Package dataset describes the released datasets that can be queried and
// where each of their data modalities is indexed.
package dataset

import "sort"

// Reference genomes.
const (
	GRCh37 = "GRCh37"
	GRCh38 = "GRCh38"
)

// Subset selects the cohort subset whose allele counts are read.
type Subset int

const (
	SubsetAll Subset = iota
	SubsetControls
	SubsetNonNeuro
	SubsetNonCancer
	SubsetNonTopmed
)

// String returns the field name of the subset in frequency documents.
func (s Subset) String() string {
	switch s {
	case SubsetControls:
		return "controls"
	case SubsetNonNeuro:
		return "non_neuro"
	case SubsetNonCancer:
		return "non_cancer"
	case SubsetNonTopmed:
		return "non_topmed"
	default:
		return "all"
	}
}

// FrequencyField returns the document path holding this subset's counts.
func (s Subset) FrequencyField() string {
	return "freq." + s.String()
}

// ACField returns the document path of this subset's allele count.
func (s Subset) ACField() string {
	return s.FrequencyField() + ".ac"
}

// Modality is a sequencing modality.
type Modality int

const (
	Exome Modality = iota
	Genome
)

// Modalities lists every modality in merge order.
var Modalities = []Modality{Exome, Genome}

// String returns the modality name.
func (m Modality) String() string {
	if m == Genome {
		return "genome"
	}
	return "exome"
}

// Dataset is one queryable dataset. An empty index name means the dataset
// has no data of that kind.
type Dataset struct {
	ID              string
	Label           string
	ReferenceGenome string
	Subset          Subset

	ExomeIndex      string
	GenomeIndex     string
	MNVIndex        string
	GeneIndex       string
	TranscriptIndex string
}

// VariantIndex returns the index holding variants of modality m.
func (d Dataset) VariantIndex(m Modality) string {
	if m == Genome {
		return d.GenomeIndex
	}
	return d.ExomeIndex
}

func r2(id, label string, subset Subset) Dataset {
	return Dataset{
		ID:              id,
		Label:           label,
		ReferenceGenome: GRCh37,
		Subset:          subset,
		ExomeIndex:      "gnomad_exomes_r2_1",
		GenomeIndex:     "gnomad_genomes_r2_1",
		MNVIndex:        "gnomad_mnvs_r2_1",
		GeneIndex:       "genes_grch37",
		TranscriptIndex: "transcripts_grch37",
	}
}

var catalog = map[string]Dataset{
	"gnomad_r2_1":            r2("gnomad_r2_1", "gnomAD v2.1.1", SubsetAll),
	"gnomad_r2_1_controls":   r2("gnomad_r2_1_controls", "gnomAD v2.1.1 (controls)", SubsetControls),
	"gnomad_r2_1_non_neuro":  r2("gnomad_r2_1_non_neuro", "gnomAD v2.1.1 (non-neuro)", SubsetNonNeuro),
	"gnomad_r2_1_non_cancer": r2("gnomad_r2_1_non_cancer", "gnomAD v2.1.1 (non-cancer)", SubsetNonCancer),
	"gnomad_r2_1_non_topmed": r2("gnomad_r2_1_non_topmed", "gnomAD v2.1.1 (non-TOPMed)", SubsetNonTopmed),
	"gnomad_r3": {
		ID:              "gnomad_r3",
		Label:           "gnomAD v3.1.2",
		ReferenceGenome: GRCh38,
		GenomeIndex:     "gnomad_genomes_r3",
		GeneIndex:       "genes_grch38",
		TranscriptIndex: "transcripts_grch38",
	},
	"gnomad_r4": {
		ID:              "gnomad_r4",
		Label:           "gnomAD v4.1.0",
		ReferenceGenome: GRCh38,
		ExomeIndex:      "gnomad_exomes_r4",
		GenomeIndex:     "gnomad_genomes_r4",
		GeneIndex:       "genes_grch38",
		TranscriptIndex: "transcripts_grch38",
	},
	"exac": {
		ID:              "exac",
		Label:           "ExAC v1.0",
		ReferenceGenome: GRCh37,
		ExomeIndex:      "exac_exomes",
		GeneIndex:       "genes_grch37",
		TranscriptIndex: "transcripts_grch37",
	},
}

// Lookup returns the dataset with the given ID.
func Lookup(id string) (Dataset, bool) {
	d, ok := catalog[id]
	return d, ok
}

// IDs returns all dataset IDs, sorted.
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
