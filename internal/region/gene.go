package region

// Feature types of exon records.
const (
	FeatureCDS  = "CDS"
	FeatureUTR  = "UTR"
	FeatureExon = "exon"
)

// Exon is a single exon feature of a gene or transcript.
type Exon struct {
	FeatureType string `json:"feature_type" mapstructure:"feature_type"`
	Start       int64  `json:"start" mapstructure:"start"`
	Stop        int64  `json:"stop" mapstructure:"stop"`
}

// Gene is a gene record from the genes index.
type Gene struct {
	GeneID          string `json:"gene_id" mapstructure:"gene_id"`
	Symbol          string `json:"symbol" mapstructure:"symbol"`
	ReferenceGenome string `json:"reference_genome" mapstructure:"reference_genome"`
	Chrom           string `json:"chrom" mapstructure:"chrom"`
	Start           int64  `json:"start" mapstructure:"start"`
	Stop            int64  `json:"stop" mapstructure:"stop"`
	Exons           []Exon `json:"exons" mapstructure:"exons"`
}

// Transcript is a transcript record from the transcripts index.
type Transcript struct {
	TranscriptID    string `json:"transcript_id" mapstructure:"transcript_id"`
	GeneID          string `json:"gene_id" mapstructure:"gene_id"`
	ReferenceGenome string `json:"reference_genome" mapstructure:"reference_genome"`
	Chrom           string `json:"chrom" mapstructure:"chrom"`
	Start           int64  `json:"start" mapstructure:"start"`
	Stop            int64  `json:"stop" mapstructure:"stop"`
	Exons           []Exon `json:"exons" mapstructure:"exons"`
}

// CodingIntervals returns the CDS and UTR exon features of chrom as
// intervals. When no exon carries either feature type, every exon is used.
func CodingIntervals(chrom string, exons []Exon) ([]Interval, error) {
	var selected []Exon
	for _, e := range exons {
		if e.FeatureType == FeatureCDS || e.FeatureType == FeatureUTR {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		selected = exons
	}

	intervals := make([]Interval, 0, len(selected))
	for _, e := range selected {
		iv, err := NewInterval(chrom, e.Start, e.Stop)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}
