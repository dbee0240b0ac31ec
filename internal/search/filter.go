package search

import (
	"fmt"
	"regexp"
)

// Filter is a predicate over documents. The concrete types are Range, Term,
// Contains, And and Or.
type Filter interface {
	filter()
}

// Range matches documents whose integer field lies within the bounds.
// Nil bounds are open.
type Range struct {
	Field string
	Gte   *int64
	Lte   *int64
}

// Term matches documents whose scalar field equals Value.
type Term struct {
	Field string
	Value string
}

// Contains matches documents whose array field has Value as an element.
type Contains struct {
	Field string
	Value string
}

// And matches documents matching every filter. An empty And matches all.
type And struct {
	Filters []Filter
}

// Or matches documents matching at least one filter. An empty Or matches
// nothing.
type Or struct {
	Filters []Filter
}

func (Range) filter()    {}
func (Term) filter()     {}
func (Contains) filter() {}
func (And) filter()      {}
func (Or) filter()       {}

// Between returns a closed range filter.
func Between(field string, lo, hi int64) Range {
	return Range{Field: field, Gte: &lo, Lte: &hi}
}

// AtLeast returns a range filter with only a lower bound.
func AtLeast(field string, lo int64) Range {
	return Range{Field: field, Gte: &lo}
}

// All combines filters with AND, dropping nil entries.
func All(filters ...Filter) And {
	var out And
	for _, f := range filters {
		if f != nil {
			out.Filters = append(out.Filters, f)
		}
	}
	return out
}

// Any combines filters with OR.
func Any(filters ...Filter) Or {
	return Or{Filters: filters}
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidField reports whether name is a dotted document path that backends
// can safely embed in a query.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// CheckFields returns an error naming the first leaf of f whose field is
// not a valid document path.
func CheckFields(f Filter) error {
	return Walk(f, func(leaf Filter) error {
		var field string
		switch v := leaf.(type) {
		case Range:
			field = v.Field
		case Term:
			field = v.Field
		case Contains:
			field = v.Field
		}
		if !ValidField(field) {
			return fmt.Errorf("invalid field %q", field)
		}
		return nil
	})
}

// Walk calls fn for every leaf filter of f.
func Walk(f Filter, fn func(Filter) error) error {
	switch v := f.(type) {
	case nil:
		return nil
	case And:
		for _, sub := range v.Filters {
			if err := Walk(sub, fn); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, sub := range v.Filters {
			if err := Walk(sub, fn); err != nil {
				return err
			}
		}
		return nil
	case Range, Term, Contains:
		return fn(v)
	default:
		return fmt.Errorf("unsupported filter %T", f)
	}
}
