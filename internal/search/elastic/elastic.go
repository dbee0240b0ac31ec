// Package elastic implements search.Searcher on an Elasticsearch 7 cluster.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/search"
)

// Config holds connection settings.
type Config struct {
	URL        string
	Username   string
	Password   string
	MaxRetries int
}

// Client runs searches against Elasticsearch.
type Client struct {
	es     *elasticsearch.Client
	logger *zap.Logger
}

// New creates a client. Requests answered with 429, 502, 503 or 504 are
// retried with exponential backoff.
func New(cfg Config) (*Client, error) {
	retryBackoff := backoff.NewExponentialBackOff()

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,

		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: maxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{es: es, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for query tracing.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Search returns one page of hits. Paging uses search_after on the sort
// values of the last hit, so q.Sort must be set for multi-page results.
func (c *Client) Search(ctx context.Context, q search.Query) (*search.Page, error) {
	if err := search.CheckFields(q.Filter); err != nil {
		return nil, err
	}
	query, err := compileFilter(q.Filter)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{query},
			},
		},
		"size":             q.Size,
		"track_total_hits": false,
	}

	if len(q.Sort) > 0 {
		sort := make([]interface{}, 0, len(q.Sort))
		for _, s := range q.Sort {
			order := "asc"
			if s.Descending {
				order = "desc"
			}
			sort = append(sort, map[string]interface{}{s.Field: map[string]string{"order": order}})
		}
		body["sort"] = sort
	}

	if q.Cursor != "" {
		var after []interface{}
		if err := json.Unmarshal([]byte(q.Cursor), &after); err != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
		body["search_after"] = after
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	c.logger.Debug("elasticsearch search", zap.String("index", q.Index), zap.String("body", buf.String()))

	start := time.Now()
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(q.Index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Index, err)
	}
	defer res.Body.Close()

	parsed, err := parseResponse(res, q.Index)
	if err != nil {
		return nil, err
	}

	children, err := parsed.S("hits", "hits").Children()
	if err != nil {
		return nil, fmt.Errorf("search %s: response has no hits", q.Index)
	}

	page := &search.Page{Hits: make([]search.Hit, 0, len(children))}
	var lastSort interface{}
	for _, h := range children {
		id, _ := h.S("_id").Data().(string)
		source, _ := h.S("_source").Data().(map[string]interface{})
		page.Hits = append(page.Hits, search.Hit{ID: id, Source: source})
		lastSort = h.S("sort").Data()
	}

	if len(q.Sort) > 0 && q.Size > 0 && len(children) == q.Size && lastSort != nil {
		cursor, err := json.Marshal(lastSort)
		if err != nil {
			return nil, fmt.Errorf("encode cursor: %w", err)
		}
		page.Cursor = string(cursor)
	}

	c.logger.Debug("elasticsearch search done",
		zap.String("index", q.Index),
		zap.Int("hits", len(page.Hits)),
		zap.Duration("took", time.Since(start)))
	return page, nil
}

// Count returns the number of documents matching filter.
func (c *Client) Count(ctx context.Context, index string, filter search.Filter) (int, error) {
	if err := search.CheckFields(filter); err != nil {
		return 0, err
	}
	query, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{query},
			},
		},
	}); err != nil {
		return 0, fmt.Errorf("encode query: %w", err)
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
		c.es.Count.WithBody(&buf),
	)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}
	defer res.Body.Close()

	parsed, err := parseResponse(res, index)
	if err != nil {
		return 0, err
	}

	n, ok := parsed.S("count").Data().(float64)
	if !ok {
		return 0, fmt.Errorf("count %s: response has no count", index)
	}
	return int(n), nil
}

// parseResponse reads a response body, mapping missing indices to
// search.ErrIndexNotFound.
func parseResponse(res *esapi.Response, index string) (*gabs.Container, error) {
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", index, err)
	}

	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse response from %s (%s): %w", index, res.Status(), err)
	}

	if res.IsError() {
		errType, _ := parsed.S("error", "type").Data().(string)
		if errType == "index_not_found_exception" {
			return nil, fmt.Errorf("%s: %w", index, search.ErrIndexNotFound)
		}
		reason, _ := parsed.S("error", "reason").Data().(string)
		return nil, fmt.Errorf("query %s failed with %s: %s %s", index, res.Status(), errType, reason)
	}
	return parsed, nil
}
