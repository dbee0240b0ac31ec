package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-agg/internal/variant"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	header := buf.String()

	expectedCols := []string{
		"#Variant_ID",
		"Location",
		"Consequence",
		"Flags",
		"Exome_AC",
		"Genome_AF",
		"MNV",
	}

	for _, col := range expectedCols {
		assert.Contains(t, header, col)
	}
}

func TestTabWriter_Write_PCSK9(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	s := &variant.Summary{
		VariantID:               "1-55516888-G-GA",
		Chrom:                   "1",
		Pos:                     55516888,
		Ref:                     "G",
		Alt:                     "GA",
		Consequence:             "frameshift_variant",
		GeneID:                  "ENSG00000169174",
		GeneSymbol:              "PCSK9",
		TranscriptID:            "ENST00000302118",
		HGVSp:                   "p.Leu31ThrfsTer9",
		LoF:                     "LC",
		Flags:                   variant.Flags{variant.FlagLCLoF, variant.FlagMNV},
		MultiNucleotideVariants: []string{"1-55516888-GA-TC"},
		Exome:                   &variant.SequencingData{AC: 2, AN: 8, AF: 0.25},
		Genome:                  &variant.SequencingData{AC: 0, AN: 2, AF: 0},
	}

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(s))
	require.NoError(t, w.Flush())

	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 21)

	assert.Equal(t, "1-55516888-G-GA", fields[0])
	assert.Equal(t, "1:55516888", fields[1])
	assert.Equal(t, "PCSK9", fields[4])
	assert.Equal(t, "ENST00000302118", fields[5])
	assert.Equal(t, "-", fields[7], "HGVSc")
	assert.Equal(t, "p.Leu31ThrfsTer9", fields[8])
	assert.Equal(t, "lc_lof,mnv", fields[10])
	assert.Equal(t, []string{"2", "8", "0.25"}, fields[11:14])
	assert.Equal(t, []string{"0", "2", "0"}, fields[14:17])
	assert.Equal(t, []string{"2", "10", "0.2"}, fields[17:20])
	assert.Equal(t, "1-55516888-GA-TC", fields[20])
}

func TestTabWriter_Write_GenomeOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.Write(&variant.Summary{
		VariantID: "1-9-G-T",
		Chrom:     "1",
		Pos:       9,
		Ref:       "G",
		Alt:       "T",
		Genome:    &variant.SequencingData{AC: 1, AN: 4, AF: 0.25},
	}))
	require.NoError(t, w.Flush())

	fields := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\t")
	require.Len(t, fields, 21)
	assert.Equal(t, "-", fields[4])
	assert.Equal(t, "-", fields[10])
	assert.Equal(t, []string{"-", "-", "-"}, fields[11:14])
	assert.Equal(t, []string{"1", "4", "0.25"}, fields[14:17])
	assert.Equal(t, "-", fields[20])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []*variant.Summary{{
		VariantID: "1-5-A-C",
		Pos:       5,
		Flags:     variant.Flags{},
		Exome:     &variant.SequencingData{AC: 1, AN: 2, AF: 0.5, Filters: []string{}},
	}}))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "1-5-A-C", decoded[0]["variant_id"])
	assert.Nil(t, decoded[0]["genome"])
	assert.Equal(t, []interface{}{}, decoded[0]["flags"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
