// Package filter applies named predicates to a collection and slices the
// matches into pages. It is pure: inputs are never modified and results keep
// the original order of the collection.
package filter

import (
	"errors"
	"strings"
)

// ErrInvalidPage reports a page number below 1 or a non-positive page size.
var ErrInvalidPage = errors.New("filter: invalid page")

// PageRequest selects one page of results. Number is 1-based.
type PageRequest struct {
	Number int
	Size   int
}

// Validate reports whether the request describes a page.
func (r PageRequest) Validate() error {
	if r.Number < 1 || r.Size <= 0 {
		return ErrInvalidPage
	}
	return nil
}

// Predicate is a named match function. A predicate with a nil Match is inactive
// and matches everything.
type Predicate[T any] struct {
	Name  string
	Match func(T) bool
}

// Active reports whether the predicate constrains the result.
func (p Predicate[T]) Active() bool {
	return p.Match != nil
}

// Page is one slice of the matching items.
type Page[T any] struct {
	Items        []T
	Number       int
	Size         int
	TotalMatches int
	TotalPages   int
	Filters      []string
}

// Apply filters items by every active predicate and returns the requested page.
// Requesting a page past the last one yields an empty page.
func Apply[T any](items []T, page PageRequest, predicates ...Predicate[T]) (Page[T], error) {
	if err := page.Validate(); err != nil {
		return Page[T]{}, err
	}

	matched := Match(items, predicates...)
	total := len(matched)
	pages := total / page.Size
	if total%page.Size != 0 {
		pages++
	}
	result := Page[T]{
		Items:        []T{},
		Number:       page.Number,
		Size:         page.Size,
		TotalMatches: total,
		TotalPages:   pages,
		Filters:      activeNames(predicates),
	}

	// Bounds are checked before multiplying so huge requests cannot overflow.
	if page.Number > pages {
		return result, nil
	}
	start := (page.Number - 1) * page.Size
	end := start + min(page.Size, total-start)
	result.Items = append(result.Items, matched[start:end]...)
	return result, nil
}

// Match returns every item accepted by all active predicates, in input order.
func Match[T any](items []T, predicates ...Predicate[T]) []T {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if matchesAll(item, predicates) {
			matched = append(matched, item)
		}
	}
	return matched
}

func matchesAll[T any](item T, predicates []Predicate[T]) bool {
	for _, p := range predicates {
		if p.Active() && !p.Match(item) {
			return false
		}
	}
	return true
}

func activeNames[T any](predicates []Predicate[T]) []string {
	names := []string{}
	for _, p := range predicates {
		if p.Active() {
			names = append(names, p.Name)
		}
	}
	return names
}

// Contains matches items where any of the fields contains query as a
// case-insensitive substring. A blank query yields an inactive predicate.
func Contains[T any](name, query string, fields func(T) []string) Predicate[T] {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return Predicate[T]{Name: name}
	}
	return Predicate[T]{
		Name: name,
		Match: func(item T) bool {
			for _, field := range fields(item) {
				if strings.Contains(strings.ToLower(field), needle) {
					return true
				}
			}
			return false
		},
	}
}

// Equals matches items whose field equals value, ignoring case. A blank value
// yields an inactive predicate.
func Equals[T any](name, value string, field func(T) string) Predicate[T] {
	want := strings.TrimSpace(value)
	if want == "" {
		return Predicate[T]{Name: name}
	}
	return Predicate[T]{
		Name: name,
		Match: func(item T) bool {
			return strings.EqualFold(strings.TrimSpace(field(item)), want)
		},
	}
}

// Where wraps an arbitrary match function. A nil fn yields an inactive predicate.
func Where[T any](name string, fn func(T) bool) Predicate[T] {
	return Predicate[T]{Name: name, Match: fn}
}
