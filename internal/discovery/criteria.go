// internal/discovery/criteria.go
package discovery

import "github.com/libranexus/discovery/internal/catalog"

// Criteria holds the optional constraints of an advanced search. A nil field
// does not constrain the result.
type Criteria struct {
	Title         *string
	Author        *string
	Category      *string
	ISBN          *string
	YearMin       *int
	YearMax       *int
	AvailableOnly bool
}

// BuildFilter translates c into a single catalog filter. Each present field adds
// one conjunctive clause; an empty Criteria matches every book.
func BuildFilter(c Criteria) catalog.Filter {
	clauses := catalog.And{}

	if c.Title != nil {
		clauses = append(clauses, catalog.Contains{Field: catalog.FieldTitle, Value: *c.Title})
	}
	if c.Author != nil {
		clauses = append(clauses, catalog.Contains{Field: catalog.FieldAuthor, Value: *c.Author})
	}
	if c.Category != nil {
		clauses = append(clauses, catalog.Equals{Field: catalog.FieldCategory, Value: *c.Category})
	}
	if c.ISBN != nil {
		clauses = append(clauses, catalog.Equals{Field: catalog.FieldISBN, Value: *c.ISBN})
	}
	if c.YearMin != nil || c.YearMax != nil {
		clauses = append(clauses, catalog.Range{
			Field: catalog.FieldPublicationYear,
			Min:   c.YearMin,
			Max:   c.YearMax,
		})
	}
	if c.AvailableOnly {
		clauses = append(clauses, catalog.GreaterThan{Field: catalog.FieldAvailableCopies, Value: 0})
	}

	return clauses
}
