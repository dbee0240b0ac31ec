package elastic

import (
	"fmt"

	"github.com/inodb/vibe-agg/internal/search"
)

// compileFilter renders a filter as an Elasticsearch query clause.
func compileFilter(f search.Filter) (map[string]interface{}, error) {
	switch v := f.(type) {
	case nil:
		return map[string]interface{}{"match_all": map[string]interface{}{}}, nil

	case search.Range:
		bounds := map[string]interface{}{}
		if v.Gte != nil {
			bounds["gte"] = *v.Gte
		}
		if v.Lte != nil {
			bounds["lte"] = *v.Lte
		}
		return map[string]interface{}{
			"range": map[string]interface{}{v.Field: bounds},
		}, nil

	case search.Term:
		return map[string]interface{}{
			"term": map[string]interface{}{v.Field: v.Value},
		}, nil

	case search.Contains:
		// A term query matches any element of an array field.
		return map[string]interface{}{
			"term": map[string]interface{}{v.Field: v.Value},
		}, nil

	case search.And:
		clauses, err := compileAll(v.Filters)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"bool": map[string]interface{}{"filter": clauses},
		}, nil

	case search.Or:
		clauses, err := compileAll(v.Filters)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               clauses,
				"minimum_should_match": 1,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported filter %T", f)
	}
}

func compileAll(filters []search.Filter) ([]interface{}, error) {
	clauses := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		c, err := compileFilter(f)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}
