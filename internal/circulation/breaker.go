// internal/circulation/breaker.go
package circulation

import (
	"context"

	"github.com/libranexus/discovery/internal/resilience"
)

type breakerStore struct {
	next    Store
	breaker *resilience.Breaker
}

// WithBreaker guards every store call with b.
func WithBreaker(next Store, b *resilience.Breaker) Store {
	if b == nil {
		return next
	}
	return &breakerStore{next: next, breaker: b}
}

func (s *breakerStore) Find(ctx context.Context, q Query) ([]Transaction, error) {
	return resilience.Do(s.breaker, func() ([]Transaction, error) {
		return s.next.Find(ctx, q)
	})
}

func (s *breakerStore) TopBooks(ctx context.Context, limit int) ([]BorrowCount, error) {
	return resilience.Do(s.breaker, func() ([]BorrowCount, error) {
		return s.next.TopBooks(ctx, limit)
	})
}

func (s *breakerStore) CountByStatus(ctx context.Context, q Query) (map[Status]int, error) {
	return resilience.Do(s.breaker, func() (map[Status]int, error) {
		return s.next.CountByStatus(ctx, q)
	})
}
