package duckdb

import (
	"bufio"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Document is one JSON document of an index.
type Document struct {
	ID     string
	Source map[string]interface{}
}

// docKey is the composite key for deduplicating documents before writing.
type docKey struct {
	index, id string
}

// PutDocuments stores documents in index, replacing documents with the same
// ID. Within one call the last document for an ID wins. Calls must not
// run concurrently: they share a staging table.
func (s *Store) PutDocuments(ctx context.Context, index string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	pos := make(map[docKey]int, len(docs))
	deduped := make([]Document, 0, len(docs))
	for _, d := range docs {
		k := docKey{index, d.ID}
		if i, ok := pos[k]; ok {
			deduped[i] = d
			continue
		}
		pos[k] = len(deduped)
		deduped = append(deduped, d)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	// Leftovers of a failed call would otherwise be merged below.
	if _, err := conn.ExecContext(ctx, `DELETE FROM documents_staging`); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "documents_staging")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, d := range deduped {
		body, err := json.Marshal(d.Source)
		if err != nil {
			appender.Close()
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		if err := appender.AppendRow(index, d.ID, string(body)); err != nil {
			appender.Close()
			return fmt.Errorf("append document %s: %w", d.ID, err)
		}
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush documents: %w", err)
	}

	if _, err := conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents SELECT index_name, id, doc FROM documents_staging`); err != nil {
		return fmt.Errorf("merge documents: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM documents_staging`); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	return nil
}

// DeleteIndex removes every document of index.
func (s *Store) DeleteIndex(ctx context.Context, index string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE index_name = ?`, index)
	return err
}

// loadRecord is one line of an NDJSON load file.
type loadRecord struct {
	Index  string                 `json:"index"`
	ID     string                 `json:"id"`
	Source map[string]interface{} `json:"source"`
}

// idFields are tried in order when a load record carries no explicit ID.
var idFields = []string{"variant_id", "gene_id", "transcript_id"}

const loadBatchSize = 5000

// LoadNDJSON reads newline-delimited records of the form
// {"index": ..., "id": ..., "source": {...}} and stores them. It returns the
// number of documents loaded.
func (s *Store) LoadNDJSON(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	batches := make(map[string][]Document)
	total := 0

	flush := func(index string) error {
		if err := s.PutDocuments(ctx, index, batches[index]); err != nil {
			return err
		}
		total += len(batches[index])
		batches[index] = batches[index][:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var rec loadRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Index == "" || rec.Source == nil {
			return total, fmt.Errorf("line %d: index and source are required", line)
		}
		if rec.ID == "" {
			for _, f := range idFields {
				if id, ok := rec.Source[f].(string); ok && id != "" {
					rec.ID = id
					break
				}
			}
		}
		if rec.ID == "" {
			return total, fmt.Errorf("line %d: document has no id", line)
		}

		batches[rec.Index] = append(batches[rec.Index], Document{ID: rec.ID, Source: rec.Source})
		if len(batches[rec.Index]) >= loadBatchSize {
			if err := flush(rec.Index); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("read input: %w", err)
	}

	for index := range batches {
		if err := flush(index); err != nil {
			return total, err
		}
	}
	return total, nil
}
