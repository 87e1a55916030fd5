// internal/catalog/store.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the read capabilities the catalog exposes to its consumers.
type Store interface {
	// Find returns books matching filter in store order. limit <= 0 means unlimited.
	Find(ctx context.Context, filter Filter, limit int) ([]Book, error)
	// Distinct returns unique non-empty values of a text field among books matching filter.
	Distinct(ctx context.Context, field Field, filter Filter, limit int) ([]string, error)
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	Count(ctx context.Context, filter Filter) (int, error)
	// CountBy groups all books by a non-empty text field, most frequent value first.
	CountBy(ctx context.Context, field Field, limit int) ([]FieldCount, error)
}
