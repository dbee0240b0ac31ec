// Package dispatch issues the bounded, paginated queries of one lookup
// against each modality's search index.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/region"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// DefaultPageSize is the number of documents requested per page.
const DefaultPageSize = 10000

// Document fields used in queries.
const (
	FieldXPos          = "xpos"
	FieldVariantID     = "variant_id"
	FieldGeneIDs       = "gene_ids"
	FieldTranscriptIDs = "transcript_ids"
	FieldGeneID        = "gene_id"
	FieldTranscriptID  = "transcript_id"
)

// positionOrder sorts variant documents by (pos, variant_id). Lookups never
// cross chromosomes so xpos order is position order.
var positionOrder = []search.SortField{
	{Field: FieldXPos, Numeric: true},
	{Field: FieldVariantID},
}

// Scope bounds the variants of one lookup.
type Scope struct {
	Dataset   dataset.Dataset
	Context   variant.Context
	Intervals []region.Interval
}

// Filter returns the search filter selecting the scope's variants: any of
// the intervals, a positive allele count in the dataset's subset, and gene
// or transcript membership for those contexts.
func (s Scope) Filter() search.Filter {
	ranges := make([]search.Filter, 0, len(s.Intervals))
	for _, iv := range s.Intervals {
		ranges = append(ranges, search.Between(FieldXPos, iv.XStart, iv.XStop))
	}

	var membership search.Filter
	switch s.Context.Kind {
	case variant.GeneContext:
		membership = search.Contains{Field: FieldGeneIDs, Value: s.Context.GeneID}
	case variant.TranscriptContext:
		membership = search.Contains{Field: FieldTranscriptIDs, Value: s.Context.TranscriptID}
	}

	return search.All(
		search.Any(ranges...),
		search.AtLeast(s.Dataset.Subset.ACField(), 1),
		membership,
	)
}

// Dispatcher runs scope queries against a search backend.
type Dispatcher struct {
	searcher search.Searcher
	pageSize int
	logger   *zap.Logger
}

// New creates a dispatcher over searcher.
func New(searcher search.Searcher) *Dispatcher {
	return &Dispatcher{
		searcher: searcher,
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
	}
}

// SetPageSize sets the number of documents requested per page.
// Values below 1 restore the default.
func (d *Dispatcher) SetPageSize(n int) {
	if n < 1 {
		n = DefaultPageSize
	}
	d.pageSize = n
}

// SetLogger sets the logger for query tracing.
func (d *Dispatcher) SetLogger(l *zap.Logger) {
	d.logger = l
}

// Count returns the number of variants of modality m within scope. A
// modality the dataset does not have counts as 0.
func (d *Dispatcher) Count(ctx context.Context, scope Scope, m dataset.Modality) (int, error) {
	index := scope.Dataset.VariantIndex(m)
	if index == "" {
		return 0, nil
	}
	n, err := d.searcher.Count(ctx, index, scope.Filter())
	if errors.Is(err, search.ErrIndexNotFound) {
		d.logger.Debug("variant index not found", zap.String("index", index))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count %s variants: %w", m, err)
	}
	return n, nil
}

// CountAll returns the number of variants within scope summed over both
// modalities. Variants present in both are counted twice.
func (d *Dispatcher) CountAll(ctx context.Context, scope Scope) (int, error) {
	counts := make([]int, len(dataset.Modalities))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range dataset.Modalities {
		g.Go(func() error {
			n, err := d.Count(gctx, scope, m)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// FetchBoth fetches the exome and genome documents of scope concurrently,
// each sorted by (pos, variant_id). A modality the dataset does not have is
// empty. Either failure fails the whole fetch.
func (d *Dispatcher) FetchBoth(ctx context.Context, scope Scope) (exome, genome []search.Hit, err error) {
	return d.fetchBoth(ctx, scope.Dataset, scope.Filter())
}

// FetchByID fetches the documents of one variant from both modalities.
func (d *Dispatcher) FetchByID(ctx context.Context, ds dataset.Dataset, variantID string) (exome, genome []search.Hit, err error) {
	return d.fetchBoth(ctx, ds, search.Term{Field: FieldVariantID, Value: variantID})
}

func (d *Dispatcher) fetchBoth(ctx context.Context, ds dataset.Dataset, filter search.Filter) (exome, genome []search.Hit, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exome, err = d.fetchVariants(gctx, ds, dataset.Exome, filter)
		return err
	})
	g.Go(func() error {
		var err error
		genome, err = d.fetchVariants(gctx, ds, dataset.Genome, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return exome, genome, nil
}

func (d *Dispatcher) fetchVariants(ctx context.Context, ds dataset.Dataset, m dataset.Modality, filter search.Filter) ([]search.Hit, error) {
	index := ds.VariantIndex(m)
	if index == "" {
		return nil, nil
	}

	hits, err := search.FetchAll(ctx, d.searcher, search.Query{
		Index:  index,
		Filter: filter,
		Sort:   positionOrder,
		Size:   d.pageSize,
	})
	if errors.Is(err, search.ErrIndexNotFound) {
		d.logger.Debug("variant index not found", zap.String("index", index))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s variants: %w", m, err)
	}

	d.logger.Debug("fetched variants",
		zap.String("index", index),
		zap.Int("count", len(hits)))
	return hits, nil
}

// FetchMNVs returns the MNV documents of ds whose position falls within any
// of intervals. A dataset without MNV data returns nothing.
func (d *Dispatcher) FetchMNVs(ctx context.Context, ds dataset.Dataset, intervals []region.Interval) ([]search.Hit, error) {
	if ds.MNVIndex == "" || len(intervals) == 0 {
		return nil, nil
	}

	ranges := make([]search.Filter, 0, len(intervals))
	for _, iv := range intervals {
		ranges = append(ranges, search.Between(FieldXPos, iv.XStart, iv.XStop))
	}

	hits, err := search.FetchAll(ctx, d.searcher, search.Query{
		Index:  ds.MNVIndex,
		Filter: search.Any(ranges...),
		Sort:   positionOrder,
		Size:   d.pageSize,
	})
	if errors.Is(err, search.ErrIndexNotFound) {
		d.logger.Debug("mnv index not found", zap.String("index", ds.MNVIndex))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch mnvs: %w", err)
	}
	return hits, nil
}

// FetchGene returns the gene document with the given ID, or nil when the
// dataset's gene index has none.
func (d *Dispatcher) FetchGene(ctx context.Context, ds dataset.Dataset, geneID string) (*search.Hit, error) {
	return d.fetchOne(ctx, ds.GeneIndex, FieldGeneID, geneID)
}

// FetchTranscript returns the transcript document with the given ID, or nil
// when the dataset's transcript index has none.
func (d *Dispatcher) FetchTranscript(ctx context.Context, ds dataset.Dataset, transcriptID string) (*search.Hit, error) {
	return d.fetchOne(ctx, ds.TranscriptIndex, FieldTranscriptID, transcriptID)
}

func (d *Dispatcher) fetchOne(ctx context.Context, index, field, value string) (*search.Hit, error) {
	if index == "" {
		return nil, nil
	}
	page, err := d.searcher.Search(ctx, search.Query{
		Index:  index,
		Filter: search.Term{Field: field, Value: value},
		Size:   1,
	})
	if errors.Is(err, search.ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", field, value, err)
	}
	if len(page.Hits) == 0 {
		return nil, nil
	}
	return &page.Hits[0], nil
}
