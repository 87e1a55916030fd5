// internal/catalog/breaker.go
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/resilience"
)

type breakerStore struct {
	next    Store
	breaker *resilience.Breaker
}

// WithBreaker guards every store call with b. Missing books do not count as failures
// when b was built with ErrBookNotFound in its ignore list.
func WithBreaker(next Store, b *resilience.Breaker) Store {
	if b == nil {
		return next
	}
	return &breakerStore{next: next, breaker: b}
}

func (s *breakerStore) Find(ctx context.Context, filter Filter, limit int) ([]Book, error) {
	return resilience.Do(s.breaker, func() ([]Book, error) {
		return s.next.Find(ctx, filter, limit)
	})
}

func (s *breakerStore) Distinct(ctx context.Context, field Field, filter Filter, limit int) ([]string, error) {
	return resilience.Do(s.breaker, func() ([]string, error) {
		return s.next.Distinct(ctx, field, filter, limit)
	})
}

func (s *breakerStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	return resilience.Do(s.breaker, func() (*Book, error) {
		return s.next.Get(ctx, id)
	})
}

func (s *breakerStore) Count(ctx context.Context, filter Filter) (int, error) {
	return resilience.Do(s.breaker, func() (int, error) {
		return s.next.Count(ctx, filter)
	})
}

func (s *breakerStore) CountBy(ctx context.Context, field Field, limit int) ([]FieldCount, error) {
	return resilience.Do(s.breaker, func() ([]FieldCount, error) {
		return s.next.CountBy(ctx, field, limit)
	})
}
