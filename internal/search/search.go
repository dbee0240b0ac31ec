// Package search defines the interface to the external document search
// engine that holds variant, MNV and gene documents, together with a small
// typed filter language that backends compile into their native queries.
package search

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexNotFound is returned when the queried index does not exist.
var ErrIndexNotFound = errors.New("index not found")

// Hit is one matching document.
type Hit struct {
	ID     string
	Source map[string]interface{}
}

// SortField orders hits by a document field. Numeric fields compare as
// integers, others as strings.
type SortField struct {
	Field      string
	Numeric    bool
	Descending bool
}

// Query describes one page request.
type Query struct {
	Index  string
	Filter Filter
	Sort   []SortField
	Size   int
	// Cursor is the opaque position returned by the previous page.
	Cursor string
}

// Page is one page of hits. Cursor is empty on the last page.
type Page struct {
	Hits   []Hit
	Cursor string
}

// Searcher is implemented by search backends.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Page, error)
	Count(ctx context.Context, index string, filter Filter) (int, error)
}

// Each calls fn for every hit matching q, following cursors until the last
// page.
func Each(ctx context.Context, s Searcher, q Query, fn func(Hit) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.Search(ctx, q)
		if err != nil {
			return err
		}
		for _, h := range page.Hits {
			if err := fn(h); err != nil {
				return err
			}
		}
		if page.Cursor == "" || len(page.Hits) == 0 {
			return nil
		}
		if page.Cursor == q.Cursor {
			return fmt.Errorf("search %s: cursor did not advance", q.Index)
		}
		q.Cursor = page.Cursor
	}
}

// FetchAll returns every hit matching q.
func FetchAll(ctx context.Context, s Searcher, q Query) ([]Hit, error) {
	var hits []Hit
	err := Each(ctx, s, q, func(h Hit) error {
		hits = append(hits, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}
