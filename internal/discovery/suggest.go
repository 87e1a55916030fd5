// internal/discovery/suggest.go
package discovery

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/libranexus/discovery/internal/catalog"
)

// Scope selects the fields suggestions are drawn from.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeTitles     Scope = "titles"
	ScopeAuthors    Scope = "authors"
	ScopeCategories Scope = "categories"
)

// ParseScope converts s to a Scope. An empty string means ScopeAll.
func ParseScope(s string) (Scope, error) {
	if s == "" {
		return ScopeAll, nil
	}
	scope := Scope(s)
	if scope.fields() == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
	return scope, nil
}

func (s Scope) fields() []catalog.Field {
	switch s {
	case ScopeAll:
		return []catalog.Field{catalog.FieldTitle, catalog.FieldAuthor, catalog.FieldCategory}
	case ScopeTitles:
		return []catalog.Field{catalog.FieldTitle}
	case ScopeAuthors:
		return []catalog.Field{catalog.FieldAuthor}
	case ScopeCategories:
		return []catalog.Field{catalog.FieldCategory}
	}
	return nil
}

func (s *service) suggest(ctx context.Context, fragment string, scope Scope) ([]string, error) {
	fields := scope.fields()
	if fields == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}

	fragment = strings.TrimSpace(fragment)
	if utf8.RuneCountInString(fragment) < MinFragmentLength {
		return []string{}, nil
	}

	perField := make([][]string, 0, len(fields))
	for _, field := range fields {
		values, err := s.books.Distinct(ctx, field,
			catalog.HasPrefix{Field: field, Value: fragment}, SuggestionsPerField)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s suggestions: %w", field, err)
		}
		perField = append(perField, values)
	}

	return mergeSuggestions(perField, MaxSuggestions), nil
}

// mergeSuggestions concatenates the per-field lists in order and drops
// duplicates before truncating to limit.
func mergeSuggestions(lists [][]string, limit int) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
