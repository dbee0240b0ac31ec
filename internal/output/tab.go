// Package output provides variant summary output formatters.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-agg/internal/variant"
)

// TabWriter writes variant summaries in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Variant_ID",
			"Location",
			"Ref",
			"Alt",
			"Gene",
			"Feature",
			"Consequence",
			"HGVSc",
			"HGVSp",
			"LoF",
			"Flags",
			"Exome_AC",
			"Exome_AN",
			"Exome_AF",
			"Genome_AC",
			"Genome_AN",
			"Genome_AF",
			"Total_AC",
			"Total_AN",
			"Total_AF",
			"MNV",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single summary. Absent values are written as "-".
func (tw *TabWriter) Write(s *variant.Summary) error {
	location := fmt.Sprintf("%s:%d", s.Chrom, s.Pos)

	gene := s.GeneSymbol
	if gene == "" {
		gene = s.GeneID
	}

	var totalAC, totalAN int64
	exAC, exAN, exAF := "-", "-", "-"
	if s.Exome != nil {
		exAC, exAN, exAF = counts(s.Exome.AC, s.Exome.AN, s.Exome.AF)
		totalAC += s.Exome.AC
		totalAN += s.Exome.AN
	}
	gAC, gAN, gAF := "-", "-", "-"
	if s.Genome != nil {
		gAC, gAN, gAF = counts(s.Genome.AC, s.Genome.AN, s.Genome.AF)
		totalAC += s.Genome.AC
		totalAN += s.Genome.AN
	}
	tAC, tAN, tAF := counts(totalAC, totalAN, variant.AlleleFrequency(totalAC, totalAN))

	values := []string{
		s.VariantID,
		location,
		s.Ref,
		s.Alt,
		dash(gene),
		dash(s.TranscriptID),
		dash(s.Consequence),
		dash(s.HGVSc),
		dash(s.HGVSp),
		dash(s.LoF),
		dash(strings.Join(s.Flags, ",")),
		exAC, exAN, exAF,
		gAC, gAN, gAF,
		tAC, tAN, tAF,
		dash(strings.Join(s.MultiNucleotideVariants, ",")),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteJSON writes summaries as an indented JSON array.
func WriteJSON(w io.Writer, summaries []*variant.Summary) error {
	if summaries == nil {
		summaries = []*variant.Summary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func counts(ac, an int64, af float64) (string, string, string) {
	return strconv.FormatInt(ac, 10), strconv.FormatInt(an, 10), strconv.FormatFloat(af, 'g', 6, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
