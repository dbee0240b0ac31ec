package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/search"
)

// Search returns one page of documents of q.Index. Cursors are row offsets.
// A Size of 0 or less returns every match in one page.
func (s *Store) Search(ctx context.Context, q search.Query) (*search.Page, error) {
	if err := s.checkIndex(ctx, q.Index); err != nil {
		return nil, err
	}

	where, args, err := compileFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	order, err := compileSort(q.Sort)
	if err != nil {
		return nil, err
	}

	offset := 0
	if q.Cursor != "" {
		offset, err = strconv.Atoi(q.Cursor)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid cursor %q", q.Cursor)
		}
	}

	stmt := "SELECT id, doc FROM documents WHERE index_name = ? AND " + where + " ORDER BY " + order
	params := append([]any{q.Index}, args...)
	if q.Size > 0 {
		stmt += " LIMIT ? OFFSET ?"
		params = append(params, q.Size, offset)
	}
	s.logger.Debug("duckdb search", zap.String("sql", stmt), zap.Any("args", params))

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Index, err)
	}
	defer rows.Close()

	page := &search.Page{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var source map[string]interface{}
		if err := json.Unmarshal([]byte(doc), &source); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		page.Hits = append(page.Hits, search.Hit{ID: id, Source: source})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	if q.Size > 0 && len(page.Hits) == q.Size {
		page.Cursor = strconv.Itoa(offset + len(page.Hits))
	}
	return page, nil
}

// Count returns the number of documents of index matching filter.
func (s *Store) Count(ctx context.Context, index string, filter search.Filter) (int, error) {
	if err := s.checkIndex(ctx, index); err != nil {
		return 0, err
	}

	where, args, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE index_name = ? AND "+where,
		append([]any{index}, args...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}
	return n, nil
}

// checkIndex returns search.ErrIndexNotFound when index holds no documents.
func (s *Store) checkIndex(ctx context.Context, index string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE index_name = ?)`, index).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", index, search.ErrIndexNotFound)
	}
	return nil
}

// jsonPath returns the quoted JSON path literal of a document field.
func jsonPath(field string) (string, error) {
	if !search.ValidField(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "'$." + field + "'", nil
}

// compileFilter renders f as a SQL boolean expression over the doc column.
func compileFilter(f search.Filter) (string, []any, error) {
	switch v := f.(type) {
	case nil:
		return "TRUE", nil, nil

	case search.Range:
		path, err := jsonPath(v.Field)
		if err != nil {
			return "", nil, err
		}
		expr := "CAST(json_extract_string(doc, " + path + ") AS BIGINT)"
		var parts []string
		var args []any
		if v.Gte != nil {
			parts = append(parts, expr+" >= ?")
			args = append(args, *v.Gte)
		}
		if v.Lte != nil {
			parts = append(parts, expr+" <= ?")
			args = append(args, *v.Lte)
		}
		if len(parts) == 0 {
			return "TRUE", nil, nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, nil

	case search.Term:
		path, err := jsonPath(v.Field)
		if err != nil {
			return "", nil, err
		}
		return "json_extract_string(doc, " + path + ") = ?", []any{v.Value}, nil

	case search.Contains:
		if !search.ValidField(v.Field) {
			return "", nil, fmt.Errorf("invalid field name %q", v.Field)
		}
		return "list_contains(json_extract_string(doc, '$." + v.Field + "[*]'), CAST(? AS VARCHAR))", []any{v.Value}, nil

	case search.And:
		return compileJoin(v.Filters, " AND ", "TRUE")

	case search.Or:
		return compileJoin(v.Filters, " OR ", "FALSE")

	default:
		return "", nil, fmt.Errorf("unsupported filter %T", f)
	}
}

func compileJoin(filters []search.Filter, op, empty string) (string, []any, error) {
	if len(filters) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		expr, a, err := compileFilter(f)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, expr)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, op) + ")", args, nil
}

// compileSort renders an ORDER BY list. Document ID is the final tiebreaker.
func compileSort(fields []search.SortField) (string, error) {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		path, err := jsonPath(f.Field)
		if err != nil {
			return "", err
		}
		expr := "json_extract_string(doc, " + path + ")"
		if f.Numeric {
			expr = "CAST(" + expr + " AS BIGINT)"
		}
		if f.Descending {
			expr += " DESC"
		}
		parts = append(parts, expr)
	}
	parts = append(parts, "id")
	return strings.Join(parts, ", "), nil
}
