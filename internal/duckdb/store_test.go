package duckdb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-agg/internal/search"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func variantDoc(id string, xpos int64, ac int64, genes ...string) Document {
	geneIDs := make([]interface{}, len(genes))
	for i, g := range genes {
		geneIDs[i] = g
	}
	return Document{
		ID: id,
		Source: map[string]interface{}{
			"variant_id": id,
			"xpos":       xpos,
			"gene_ids":   geneIDs,
			"freq": map[string]interface{}{
				"all": map[string]interface{}{"ac": ac, "an": 100},
			},
		},
	}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.PutDocuments(context.Background(), "exomes", []Document{
		variantDoc("1-30-A-C", 1_000_000_030, 3, "G1"),
		variantDoc("1-10-A-C", 1_000_000_010, 1, "G1"),
		variantDoc("1-20-A-C", 1_000_000_020, 0, "G1", "G2"),
		variantDoc("1-20-A-G", 1_000_000_020, 2, "G2"),
		variantDoc("2-10-T-C", 2_000_000_010, 5, "G3"),
	}))
}

// --- Document store tests ---

func TestOpenClose(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSearch_FilterAndSort(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	page, err := s.Search(context.Background(), search.Query{
		Index: "exomes",
		Filter: search.All(
			search.Any(search.Between("xpos", 1_000_000_001, 1_000_000_025)),
			search.AtLeast("freq.all.ac", 1),
		),
		Sort: []search.SortField{{Field: "xpos", Numeric: true}, {Field: "variant_id"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Hits, 2)
	assert.Equal(t, "1-10-A-C", page.Hits[0].ID)
	assert.Equal(t, "1-20-A-G", page.Hits[1].ID)
	assert.Empty(t, page.Cursor)
	assert.Equal(t, "1-20-A-G", page.Hits[1].Source["variant_id"])
}

func TestSearch_Contains(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	hits, err := search.FetchAll(context.Background(), s, search.Query{
		Index:  "exomes",
		Filter: search.Contains{Field: "gene_ids", Value: "G2"},
		Sort:   []search.SortField{{Field: "xpos", Numeric: true}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "1-20-A-C", hits[0].ID)
	assert.Equal(t, "1-20-A-G", hits[1].ID)
}

func TestSearch_Term(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	hits, err := search.FetchAll(context.Background(), s, search.Query{
		Index:  "exomes",
		Filter: search.Term{Field: "variant_id", Value: "2-10-T-C"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSearch_Paging(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	q := search.Query{
		Index: "exomes",
		Sort:  []search.SortField{{Field: "xpos", Numeric: true, Descending: true}},
		Size:  2,
	}
	page, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Hits, 2)
	assert.Equal(t, "2-10-T-C", page.Hits[0].ID)
	assert.Equal(t, "2", page.Cursor)

	hits, err := search.FetchAll(context.Background(), s, q)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	assert.Equal(t, "1-10-A-C", hits[4].ID)
}

func TestSearch_IndexNotFound(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	_, err := s.Search(context.Background(), search.Query{Index: "genomes"})
	assert.True(t, errors.Is(err, search.ErrIndexNotFound))

	_, err = s.Count(context.Background(), "genomes", nil)
	assert.True(t, errors.Is(err, search.ErrIndexNotFound))
}

func TestSearch_RejectsBadField(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	_, err := s.Search(context.Background(), search.Query{
		Index:  "exomes",
		Filter: search.Term{Field: "x') OR TRUE --", Value: "y"},
	})
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	n, err := s.Count(context.Background(), "exomes", search.AtLeast("freq.all.ac", 1))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.Count(context.Background(), "exomes", search.Any())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPutDocuments_Replaces(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	require.NoError(t, s.PutDocuments(context.Background(), "exomes", []Document{
		variantDoc("1-10-A-C", 1_000_000_010, 9, "G9"),
		variantDoc("1-10-A-C", 1_000_000_010, 7, "G7"),
	}))

	n, err := s.Count(context.Background(), "exomes", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	hits, err := search.FetchAll(context.Background(), s, search.Query{
		Index:  "exomes",
		Filter: search.Contains{Field: "gene_ids", Value: "G7"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestDeleteIndex(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	require.NoError(t, s.DeleteIndex(context.Background(), "exomes"))
	_, err := s.Count(context.Background(), "exomes", nil)
	assert.ErrorIs(t, err, search.ErrIndexNotFound)
}

func TestLoadNDJSON(t *testing.T) {
	s := openInMemory(t)

	input := strings.Join([]string{
		`{"index":"genes_grch37","source":{"gene_id":"ENSG00000169174","chrom":"1","exons":[]}}`,
		``,
		`{"index":"gnomad_exomes_r2_1","id":"x","source":{"variant_id":"1-5-A-C","xpos":1000000005}}`,
		`{"index":"gnomad_exomes_r2_1","source":{"variant_id":"1-9-G-T","xpos":1000000009}}`,
	}, "\n")

	n, err := s.LoadNDJSON(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := search.FetchAll(context.Background(), s, search.Query{
		Index: "gnomad_exomes_r2_1",
		Sort:  []search.SortField{{Field: "xpos", Numeric: true}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].ID)
	assert.Equal(t, "1-9-G-T", hits[1].ID)

	hits, err = search.FetchAll(context.Background(), s, search.Query{
		Index:  "genes_grch37",
		Filter: search.Term{Field: "gene_id", Value: "ENSG00000169174"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestLoadNDJSON_Errors(t *testing.T) {
	s := openInMemory(t)

	_, err := s.LoadNDJSON(context.Background(), strings.NewReader(`{"index":"a","source":{"x":1}}`))
	assert.ErrorContains(t, err, "no id")

	_, err = s.LoadNDJSON(context.Background(), strings.NewReader(`not json`))
	assert.ErrorContains(t, err, "line 1")

	_, err = s.LoadNDJSON(context.Background(), strings.NewReader(`{"id":"a","source":{"x":1}}`))
	assert.ErrorContains(t, err, "index and source")
}

// --- Result cache tests ---

func TestCacheGetSet(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte(`[1,2,3]`)))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[1,2,3]`), v)

	require.NoError(t, s.Set(ctx, "k", []byte(`[]`)))
	v, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), v)
}

func TestClearCache(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.ClearCache())

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
