package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/duckdb"
	"github.com/inodb/vibe-agg/internal/region"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// recordingSearcher returns canned results per index and records queries.
type recordingSearcher struct {
	mu      sync.Mutex
	counts  map[string]int
	hits    map[string][]search.Hit
	errs    map[string]error
	queries []search.Query
}

func (r *recordingSearcher) Search(_ context.Context, q search.Query) (*search.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	if err := r.errs[q.Index]; err != nil {
		return nil, err
	}
	return &search.Page{Hits: r.hits[q.Index]}, nil
}

func (r *recordingSearcher) Count(_ context.Context, index string, _ search.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[index]; err != nil {
		return 0, err
	}
	return r.counts[index], nil
}

func mustInterval(t *testing.T, chrom string, start, stop int64) region.Interval {
	t.Helper()
	iv, err := region.NewInterval(chrom, start, stop)
	require.NoError(t, err)
	return iv
}

func r2Dataset(t *testing.T, id string) dataset.Dataset {
	t.Helper()
	ds, ok := dataset.Lookup(id)
	require.True(t, ok)
	return ds
}

func TestScopeFilter(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r2_1_non_neuro")
	ivs := []region.Interval{mustInterval(t, "1", 100, 200), mustInterval(t, "1", 500, 600)}

	t.Run("gene", func(t *testing.T) {
		f := Scope{Dataset: ds, Context: variant.Gene("G1"), Intervals: ivs}.Filter()
		and, ok := f.(search.And)
		require.True(t, ok)
		require.Len(t, and.Filters, 3)

		or := and.Filters[0].(search.Or)
		require.Len(t, or.Filters, 2)
		assert.Equal(t, search.Between(FieldXPos, 1_000_000_100, 1_000_000_200), or.Filters[0])
		assert.Equal(t, search.AtLeast("freq.non_neuro.ac", 1), and.Filters[1])
		assert.Equal(t, search.Contains{Field: FieldGeneIDs, Value: "G1"}, and.Filters[2])
	})

	t.Run("transcript", func(t *testing.T) {
		f := Scope{Dataset: ds, Context: variant.Transcript("T1"), Intervals: ivs}.Filter()
		and := f.(search.And)
		require.Len(t, and.Filters, 3)
		assert.Equal(t, search.Contains{Field: FieldTranscriptIDs, Value: "T1"}, and.Filters[2])
	})

	t.Run("region", func(t *testing.T) {
		f := Scope{Dataset: ds, Context: variant.Region(), Intervals: ivs}.Filter()
		and := f.(search.And)
		assert.Len(t, and.Filters, 2)
	})
}

func TestCount_AbsentModality(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r3")
	s := &recordingSearcher{counts: map[string]int{"gnomad_genomes_r3": 12}}
	d := New(s)

	scope := Scope{Dataset: ds, Context: variant.Region(), Intervals: []region.Interval{mustInterval(t, "1", 1, 10)}}

	n, err := d.Count(context.Background(), scope, dataset.Exome)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = d.CountAll(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestCountAll_SumsModalities(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r2_1")
	s := &recordingSearcher{counts: map[string]int{
		"gnomad_exomes_r2_1":  20000,
		"gnomad_genomes_r2_1": 15000,
	}}
	n, err := New(s).CountAll(context.Background(), Scope{Dataset: ds, Context: variant.Region()})
	require.NoError(t, err)
	assert.Equal(t, 35000, n)
}

func TestCount_IndexNotFoundIsEmpty(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r2_1")
	s := &recordingSearcher{
		counts: map[string]int{"gnomad_exomes_r2_1": 4},
		errs:   map[string]error{"gnomad_genomes_r2_1": search.ErrIndexNotFound},
	}
	n, err := New(s).CountAll(context.Background(), Scope{Dataset: ds, Context: variant.Region()})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCount_Error(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r2_1")
	boom := errors.New("connection refused")
	s := &recordingSearcher{errs: map[string]error{"gnomad_exomes_r2_1": boom}}

	_, err := New(s).CountAll(context.Background(), Scope{Dataset: ds, Context: variant.Region()})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "count exome variants")
}

func TestFetchBoth(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r2_1")
	s := &recordingSearcher{hits: map[string][]search.Hit{
		"gnomad_exomes_r2_1":  {{ID: "1-5-A-C"}},
		"gnomad_genomes_r2_1": {{ID: "1-5-A-C"}, {ID: "1-9-G-T"}},
	}}
	d := New(s)
	d.SetPageSize(500)

	exome, genome, err := d.FetchBoth(context.Background(), Scope{
		Dataset:   ds,
		Context:   variant.Gene("G1"),
		Intervals: []region.Interval{mustInterval(t, "1", 1, 10)},
	})
	require.NoError(t, err)
	assert.Len(t, exome, 1)
	assert.Len(t, genome, 2)

	require.Len(t, s.queries, 2)
	for _, q := range s.queries {
		assert.Equal(t, 500, q.Size)
		assert.Equal(t, positionOrder, q.Sort)
	}
}

func TestFetchBoth_FailureFailsWhole(t *testing.T) {
	ds := r2Dataset(t, "gnomad_r2_1")
	boom := errors.New("timeout")
	s := &recordingSearcher{
		hits: map[string][]search.Hit{"gnomad_exomes_r2_1": {{ID: "1-5-A-C"}}},
		errs: map[string]error{"gnomad_genomes_r2_1": boom},
	}

	exome, genome, err := New(s).FetchBoth(context.Background(), Scope{Dataset: ds, Context: variant.Region()})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, exome)
	assert.Nil(t, genome)
}

func TestFetch_AbsentIndexIsEmpty(t *testing.T) {
	ds := r2Dataset(t, "exac")
	s := &recordingSearcher{errs: map[string]error{"exac_exomes": search.ErrIndexNotFound}}

	exome, genome, err := New(s).FetchBoth(context.Background(), Scope{Dataset: ds, Context: variant.Region()})
	require.NoError(t, err)
	assert.Empty(t, exome)
	assert.Empty(t, genome)
	// exac has no genome index, so only the exome query is sent.
	assert.Len(t, s.queries, 1)
}

func TestFetchMNVs(t *testing.T) {
	s := &recordingSearcher{hits: map[string][]search.Hit{"gnomad_mnvs_r2_1": {{ID: "1-2-GA-TC"}}}}
	d := New(s)
	ivs := []region.Interval{mustInterval(t, "1", 1, 10)}

	hits, err := d.FetchMNVs(context.Background(), r2Dataset(t, "gnomad_r2_1"), ivs)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = d.FetchMNVs(context.Background(), r2Dataset(t, "gnomad_r4"), ivs)
	require.NoError(t, err)
	assert.Nil(t, hits)
	assert.Len(t, s.queries, 1)
}

func TestFetchGene(t *testing.T) {
	s := &recordingSearcher{hits: map[string][]search.Hit{
		"genes_grch37": {{ID: "ENSG00000169174", Source: map[string]interface{}{"gene_id": "ENSG00000169174"}}},
	}}
	d := New(s)

	hit, err := d.FetchGene(context.Background(), r2Dataset(t, "gnomad_r2_1"), "ENSG00000169174")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "ENSG00000169174", hit.ID)
	assert.Equal(t, search.Term{Field: FieldGeneID, Value: "ENSG00000169174"}, s.queries[0].Filter)

	hit, err = d.FetchTranscript(context.Background(), r2Dataset(t, "gnomad_r2_1"), "ENST1")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

// TestFetch_DuckDB runs the scope filter against the DuckDB backend.
func TestFetch_DuckDB(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	doc := func(id string, pos, ac int64, genes ...interface{}) duckdb.Document {
		return duckdb.Document{ID: id, Source: map[string]interface{}{
			"variant_id": id,
			"pos":        pos,
			"xpos":       1_000_000_000 + pos,
			"gene_ids":   genes,
			"freq":       map[string]interface{}{"all": map[string]interface{}{"ac": ac, "an": 10}},
		}}
	}
	require.NoError(t, store.PutDocuments(context.Background(), "gnomad_exomes_r2_1", []duckdb.Document{
		doc("1-120-C-T", 120, 1, "G1"),
		doc("1-110-A-G", 110, 2, "G1"),
		doc("1-110-A-C", 110, 1, "G1"),
		doc("1-115-A-C", 115, 0, "G1"),
		doc("1-130-A-C", 130, 4, "G2"),
		doc("1-900-A-C", 900, 4, "G1"),
	}))

	d := New(store)
	d.SetPageSize(2)
	scope := Scope{
		Dataset:   r2Dataset(t, "gnomad_r2_1"),
		Context:   variant.Gene("G1"),
		Intervals: []region.Interval{mustInterval(t, "1", 100, 200)},
	}

	n, err := d.CountAll(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	exome, genome, err := d.FetchBoth(context.Background(), scope)
	require.NoError(t, err)
	assert.Empty(t, genome)

	ids := make([]string, len(exome))
	for i, h := range exome {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"1-110-A-C", "1-110-A-G", "1-120-C-T"}, ids)
}
