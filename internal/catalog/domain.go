// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrInvalidBook  = errors.New("invalid book")
	ErrUnknownField = errors.New("unknown catalog field")
)

// Book represents a catalog record.
type Book struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ISBN            string    `json:"isbn" db:"isbn"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	Category        string    `json:"category" db:"category"`
	Publisher       string    `json:"publisher,omitempty" db:"publisher"`
	PublicationYear int       `json:"publication_year,omitempty" db:"publication_year"`
	Description     string    `json:"description,omitempty" db:"description"`
	TotalCopies     int       `json:"total_copies" db:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the copy-count invariant.
func (b Book) Validate() error {
	if b.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidBook)
	}
	if b.TotalCopies < 0 || b.AvailableCopies < 0 {
		return fmt.Errorf("%w: negative copy count", ErrInvalidBook)
	}
	if b.AvailableCopies > b.TotalCopies {
		return fmt.Errorf("%w: %d available exceeds %d total", ErrInvalidBook, b.AvailableCopies, b.TotalCopies)
	}
	return nil
}

// IsAvailable reports whether at least one copy can be borrowed.
func (b Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// Field names a filterable book attribute. Values double as column names.
type Field string

const (
	FieldTitle           Field = "title"
	FieldAuthor          Field = "author"
	FieldCategory        Field = "category"
	FieldISBN            Field = "isbn"
	FieldPublisher       Field = "publisher"
	FieldDescription     Field = "description"
	FieldPublicationYear Field = "publication_year"
	FieldTotalCopies     Field = "total_copies"
	FieldAvailableCopies Field = "available_copies"
)

// IsText reports whether the field holds a string value.
func (f Field) IsText() bool {
	switch f {
	case FieldTitle, FieldAuthor, FieldCategory, FieldISBN, FieldPublisher, FieldDescription:
		return true
	}
	return false
}

// IsNumeric reports whether the field holds an integer value.
func (f Field) IsNumeric() bool {
	switch f {
	case FieldPublicationYear, FieldTotalCopies, FieldAvailableCopies:
		return true
	}
	return false
}

func (b Book) text(f Field) string {
	switch f {
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldCategory:
		return b.Category
	case FieldISBN:
		return b.ISBN
	case FieldPublisher:
		return b.Publisher
	case FieldDescription:
		return b.Description
	}
	return ""
}

func (b Book) number(f Field) int {
	switch f {
	case FieldPublicationYear:
		return b.PublicationYear
	case FieldTotalCopies:
		return b.TotalCopies
	case FieldAvailableCopies:
		return b.AvailableCopies
	}
	return 0
}

// FieldCount is one row of a group-by-field aggregation.
type FieldCount struct {
	Value string `json:"value" db:"value"`
	Count int    `json:"count" db:"count"`
}
