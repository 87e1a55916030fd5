// internal/catalog/filter.go
package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// Filter is a predicate over books. Stores translate it into their own query
// language; Match evaluates it in memory.
type Filter interface {
	isFilter()
}

// Contains matches when Value occurs anywhere in a text field, ignoring case.
type Contains struct {
	Field Field
	Value string
}

// HasPrefix matches when a text field starts with Value, ignoring case.
type HasPrefix struct {
	Field Field
	Value string
}

// Equals matches a text field exactly.
type Equals struct {
	Field Field
	Value string
}

// In matches when a text field equals any of Values.
type In struct {
	Field  Field
	Values []string
}

// IDIn matches books whose identifier is listed.
type IDIn struct {
	IDs []uuid.UUID
}

// IDNotIn matches books whose identifier is not listed.
type IDNotIn struct {
	IDs []uuid.UUID
}

// Range bounds a numeric field inclusively. A nil bound is open.
type Range struct {
	Field Field
	Min   *int
	Max   *int
}

// GreaterThan matches when a numeric field is strictly above Value.
type GreaterThan struct {
	Field Field
	Value int
}

// And matches when every clause matches. An empty And matches everything.
type And []Filter

// Or matches when any clause matches. An empty Or matches nothing.
type Or []Filter

func (Contains) isFilter()    {}
func (HasPrefix) isFilter()   {}
func (Equals) isFilter()      {}
func (In) isFilter()          {}
func (IDIn) isFilter()        {}
func (IDNotIn) isFilter()     {}
func (Range) isFilter()       {}
func (GreaterThan) isFilter() {}
func (And) isFilter()         {}
func (Or) isFilter()          {}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

// Match evaluates f against b. A nil filter matches everything.
func Match(f Filter, b Book) bool {
	switch f := f.(type) {
	case nil:
		return true
	case Contains:
		return f.Field.IsText() && ContainsFold(b.text(f.Field), f.Value)
	case HasPrefix:
		return f.Field.IsText() && hasPrefixFold(b.text(f.Field), f.Value)
	case Equals:
		return f.Field.IsText() && b.text(f.Field) == f.Value
	case In:
		if !f.Field.IsText() {
			return false
		}
		v := b.text(f.Field)
		for _, candidate := range f.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case IDIn:
		return containsID(f.IDs, b.ID)
	case IDNotIn:
		return !containsID(f.IDs, b.ID)
	case Range:
		if !f.Field.IsNumeric() {
			return false
		}
		v := b.number(f.Field)
		if f.Min != nil && v < *f.Min {
			return false
		}
		if f.Max != nil && v > *f.Max {
			return false
		}
		return true
	case GreaterThan:
		return f.Field.IsNumeric() && b.number(f.Field) > f.Value
	case And:
		for _, clause := range f {
			if !Match(clause, b) {
				return false
			}
		}
		return true
	case Or:
		for _, clause := range f {
			if Match(clause, b) {
				return true
			}
		}
		return false
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
