// Package aggregate answers variant lookups: it bounds the lookup to merged
// genomic intervals, queries both sequencing modalities, shapes and merges
// their documents and flags MNV constituents.
package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/annotate"
	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/dispatch"
	"github.com/inodb/vibe-agg/internal/merge"
	"github.com/inodb/vibe-agg/internal/mnv"
	"github.com/inodb/vibe-agg/internal/region"
	"github.com/inodb/vibe-agg/internal/resultcache"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/variant"
)

// Default limits.
const (
	DefaultMaxVariants = 30000
)

// Config holds the tunables of a Service.
type Config struct {
	// Padding is added around every exon of a gene or transcript.
	Padding int64
	// MaxVariants caps the number of variant documents a lookup may fetch.
	MaxVariants int
	// PageSize is the number of documents requested per search page.
	PageSize int
	// Workers is the number of decoding workers. 0 means runtime.NumCPU().
	Workers int
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		Padding:     region.DefaultPadding,
		MaxVariants: DefaultMaxVariants,
		PageSize:    dispatch.DefaultPageSize,
	}
}

// Request describes one lookup. Context selects gene, transcript or region.
// Gene and transcript lookups use Exons on Chrom when given, and otherwise
// fetch the gene or transcript record. Region lookups use Chrom, Start and
// Stop.
type Request struct {
	Dataset string
	// ReferenceGenome, when set, must match the dataset's.
	ReferenceGenome string
	Context         variant.Context

	Chrom string
	Start int64
	Stop  int64
	Exons []region.Exon
}

// Service runs lookups against a search backend.
type Service struct {
	dispatcher *dispatch.Dispatcher
	cache      *resultcache.Cache
	cfg        Config
	logger     *zap.Logger
}

// NewService creates a service querying searcher.
func NewService(searcher search.Searcher, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.MaxVariants <= 0 {
		cfg.MaxVariants = def.MaxVariants
	}
	if cfg.Padding < 0 {
		cfg.Padding = def.Padding
	}

	d := dispatch.New(searcher)
	d.SetPageSize(cfg.PageSize)
	return &Service{
		dispatcher: d,
		cfg:        cfg,
		logger:     zap.NewNop(),
	}
}

// SetCache enables result memoization. A nil cache disables it.
func (s *Service) SetCache(c *resultcache.Cache) {
	s.cache = c
}

// SetLogger sets the logger of the service and its dispatcher.
func (s *Service) SetLogger(l *zap.Logger) {
	s.logger = l
	s.dispatcher.SetLogger(l)
}

// requestLogger returns a logger tagged with a fresh request ID.
func (s *Service) requestLogger(op string, fields ...zap.Field) *zap.Logger {
	return s.logger.With(append([]zap.Field{
		zap.String("request_id", uuid.NewString()),
		zap.String("op", op),
	}, fields...)...)
}

// ListVariants returns the variants of the request's gene, transcript or
// region, ordered by (pos, variant ID), each with the data of the
// modalities it was observed in.
func (s *Service) ListVariants(ctx context.Context, req Request) ([]*variant.Summary, error) {
	log := s.requestLogger("list_variants",
		zap.String("dataset", req.Dataset),
		zap.Stringer("context", req.Context))

	scope, err := s.scope(ctx, req)
	if err != nil {
		return nil, classify(log, err)
	}

	// The cap decides whether a list is returned at all, so it is part of
	// the key.
	key := s.cache.Key("variants", scope.Dataset.ID, scope.Context.String(), intervalKey(scope.Intervals),
		strconv.Itoa(s.cfg.MaxVariants))
	variants, err := resultcache.Do(ctx, s.cache, key, func(ctx context.Context) ([]*variant.Summary, error) {
		return s.listVariants(ctx, log, scope)
	})
	if err != nil {
		return nil, classify(log, err)
	}
	return variants, nil
}

func (s *Service) listVariants(ctx context.Context, log *zap.Logger, scope dispatch.Scope) ([]*variant.Summary, error) {
	n, err := s.dispatcher.CountAll(ctx, scope)
	if err != nil {
		return nil, err
	}
	if n > s.cfg.MaxVariants {
		log.Info("too many variants", zap.Int("count", n), zap.Int("max", s.cfg.MaxVariants))
		return nil, userErrorf("This %s has too many variants to display (%d, limit %d). Select a smaller region.",
			scope.Context.Kind, n, s.cfg.MaxVariants)
	}

	exomeHits, genomeHits, err := s.dispatcher.FetchBoth(ctx, scope)
	if err != nil {
		return nil, err
	}

	shaper := s.newShaper(scope.Dataset)
	exome, err := shaper.ShapeAll(exomeHits, scope.Context, dataset.Exome)
	if err != nil {
		return nil, err
	}
	genome, err := shaper.ShapeAll(genomeHits, scope.Context, dataset.Genome)
	if err != nil {
		return nil, err
	}

	variants := merge.Merge(exome, genome)
	if err := s.annotateMNVs(ctx, scope.Dataset, scope.Intervals, variants); err != nil {
		return nil, err
	}
	for _, v := range variants {
		if v.Flags == nil {
			v.Flags = variant.Flags{}
		}
	}

	log.Debug("listed variants",
		zap.Int("exome", len(exome)),
		zap.Int("genome", len(genome)),
		zap.Int("merged", len(variants)))
	return variants, nil
}

// CountVariants returns the number of variant documents of the request
// summed over both modalities.
func (s *Service) CountVariants(ctx context.Context, req Request) (int, error) {
	log := s.requestLogger("count_variants",
		zap.String("dataset", req.Dataset),
		zap.Stringer("context", req.Context))

	scope, err := s.scope(ctx, req)
	if err != nil {
		return 0, classify(log, err)
	}

	key := s.cache.Key("count", scope.Dataset.ID, scope.Context.String(), intervalKey(scope.Intervals))
	n, err := resultcache.Do(ctx, s.cache, key, func(ctx context.Context) (int, error) {
		return s.dispatcher.CountAll(ctx, scope)
	})
	if err != nil {
		return 0, classify(log, err)
	}
	return n, nil
}

// GetVariant returns one variant in the region context, or a UserError when
// neither modality has it.
func (s *Service) GetVariant(ctx context.Context, datasetID, variantID string) (*variant.Summary, error) {
	log := s.requestLogger("get_variant",
		zap.String("dataset", datasetID),
		zap.String("variant_id", variantID))

	v, err := s.getVariant(ctx, datasetID, variantID)
	if err != nil {
		return nil, classify(log, err)
	}
	return v, nil
}

func (s *Service) getVariant(ctx context.Context, datasetID, variantID string) (*variant.Summary, error) {
	ds, err := s.dataset(datasetID, "")
	if err != nil {
		return nil, err
	}

	exomeHits, genomeHits, err := s.dispatcher.FetchByID(ctx, ds, variantID)
	if err != nil {
		return nil, err
	}

	shaper := s.newShaper(ds)
	exome, err := shaper.ShapeAll(firstHit(exomeHits), variant.Region(), dataset.Exome)
	if err != nil {
		return nil, err
	}
	genome, err := shaper.ShapeAll(firstHit(genomeHits), variant.Region(), dataset.Genome)
	if err != nil {
		return nil, err
	}

	merged := merge.Merge(exome, genome)
	if len(merged) == 0 {
		return nil, userErrorf("Variant not found")
	}
	v := merged[0]

	iv, err := region.NewInterval(v.Chrom, v.Pos, v.Pos)
	if err != nil {
		return nil, fmt.Errorf("locate variant %s: %w", variantID, err)
	}
	if err := s.annotateMNVs(ctx, ds, []region.Interval{iv}, merged); err != nil {
		return nil, err
	}
	if v.Flags == nil {
		v.Flags = variant.Flags{}
	}
	return v, nil
}

// LookupGene returns the gene record of geneID in the dataset's gene index.
func (s *Service) LookupGene(ctx context.Context, datasetID, geneID string) (*region.Gene, error) {
	log := s.requestLogger("lookup_gene", zap.String("dataset", datasetID), zap.String("gene_id", geneID))

	ds, err := s.dataset(datasetID, "")
	if err != nil {
		return nil, classify(log, err)
	}
	g, err := s.lookupGene(ctx, ds, geneID)
	if err != nil {
		return nil, classify(log, err)
	}
	return g, nil
}

// LookupTranscript returns the transcript record of transcriptID in the
// dataset's transcript index.
func (s *Service) LookupTranscript(ctx context.Context, datasetID, transcriptID string) (*region.Transcript, error) {
	log := s.requestLogger("lookup_transcript", zap.String("dataset", datasetID), zap.String("transcript_id", transcriptID))

	ds, err := s.dataset(datasetID, "")
	if err != nil {
		return nil, classify(log, err)
	}
	tx, err := s.lookupTranscript(ctx, ds, transcriptID)
	if err != nil {
		return nil, classify(log, err)
	}
	return tx, nil
}

func (s *Service) lookupGene(ctx context.Context, ds dataset.Dataset, geneID string) (*region.Gene, error) {
	hit, err := s.dispatcher.FetchGene(ctx, ds, geneID)
	if err != nil {
		return nil, err
	}
	if hit == nil {
		return nil, userErrorf("Gene not found: %s", geneID)
	}
	var g region.Gene
	if err := decode(hit.Source, &g); err != nil {
		return nil, fmt.Errorf("decode gene %s: %w", geneID, err)
	}
	return &g, nil
}

func (s *Service) lookupTranscript(ctx context.Context, ds dataset.Dataset, transcriptID string) (*region.Transcript, error) {
	hit, err := s.dispatcher.FetchTranscript(ctx, ds, transcriptID)
	if err != nil {
		return nil, err
	}
	if hit == nil {
		return nil, userErrorf("Transcript not found: %s", transcriptID)
	}
	var tx region.Transcript
	if err := decode(hit.Source, &tx); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", transcriptID, err)
	}
	return &tx, nil
}

// dataset resolves a dataset ID and checks the requested reference genome.
func (s *Service) dataset(id, referenceGenome string) (dataset.Dataset, error) {
	ds, ok := dataset.Lookup(id)
	if !ok {
		return dataset.Dataset{}, userErrorf("Unknown dataset %q", id)
	}
	if referenceGenome != "" && !strings.EqualFold(referenceGenome, ds.ReferenceGenome) {
		return dataset.Dataset{}, userErrorf("%s is not available on %s", ds.Label, referenceGenome)
	}
	return ds, nil
}

// scope resolves the dataset and merged intervals of req.
func (s *Service) scope(ctx context.Context, req Request) (dispatch.Scope, error) {
	ds, err := s.dataset(req.Dataset, req.ReferenceGenome)
	if err != nil {
		return dispatch.Scope{}, err
	}

	scope := dispatch.Scope{Dataset: ds, Context: req.Context}
	switch req.Context.Kind {
	case variant.RegionContext:
		iv, err := region.NewInterval(req.Chrom, req.Start, req.Stop)
		if err != nil {
			return dispatch.Scope{}, &UserError{Message: err.Error()}
		}
		scope.Intervals = []region.Interval{iv}

	case variant.GeneContext, variant.TranscriptContext:
		chrom, exons := req.Chrom, req.Exons
		if len(exons) == 0 {
			chrom, exons, err = s.features(ctx, ds, req.Context)
			if err != nil {
				return dispatch.Scope{}, err
			}
		}
		ivs, err := region.CodingIntervals(chrom, exons)
		if err != nil {
			return dispatch.Scope{}, &UserError{Message: err.Error()}
		}
		scope.Intervals = region.Merge(ivs, s.cfg.Padding)

	default:
		return dispatch.Scope{}, userErrorf("Unsupported context %s", req.Context)
	}
	return scope, nil
}

// features returns the chromosome and exons of a gene or transcript context.
func (s *Service) features(ctx context.Context, ds dataset.Dataset, c variant.Context) (string, []region.Exon, error) {
	if c.Kind == variant.TranscriptContext {
		tx, err := s.lookupTranscript(ctx, ds, c.TranscriptID)
		if err != nil {
			return "", nil, err
		}
		return tx.Chrom, tx.Exons, nil
	}
	g, err := s.lookupGene(ctx, ds, c.GeneID)
	if err != nil {
		return "", nil, err
	}
	return g.Chrom, g.Exons, nil
}

func (s *Service) newShaper(ds dataset.Dataset) *annotate.Shaper {
	shaper := annotate.NewShaper(ds.Subset)
	shaper.SetWorkers(s.cfg.Workers)
	shaper.SetLogger(s.logger)
	return shaper
}

// annotateMNVs flags constituents of MNVs overlapping intervals.
func (s *Service) annotateMNVs(ctx context.Context, ds dataset.Dataset, intervals []region.Interval, variants []*variant.Summary) error {
	if len(variants) == 0 {
		return nil
	}
	hits, err := s.dispatcher.FetchMNVs(ctx, ds, mnv.ScopeIntervals(intervals))
	if err != nil {
		return err
	}
	records, err := mnv.Decode(hits)
	if err != nil {
		return err
	}
	mnv.Annotate(variants, records)
	return nil
}

func firstHit(hits []search.Hit) []search.Hit {
	if len(hits) > 1 {
		return hits[:1]
	}
	return hits
}

func intervalKey(intervals []region.Interval) string {
	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = iv.String()
	}
	return strings.Join(parts, ",")
}

func decode(source map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(source)
}
