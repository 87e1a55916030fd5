// internal/chaos/faults.go
package chaos

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
)

// ErrInjected is the failure returned by a faulty store.
var ErrInjected = errors.New("chaos: injected store failure")

// Injector holds the faults currently applied to the stores it wraps.
type Injector struct {
	mu       sync.RWMutex
	failRate float64
	latency  time.Duration
	jitter   time.Duration
}

func NewInjector() *Injector {
	return &Injector{}
}

// Fail makes a fraction of calls (0..1) return ErrInjected.
func (i *Injector) Fail(rate float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failRate = min(max(rate, 0), 1)
}

// Delay adds latency plus up to jitter of random extra delay to every call.
func (i *Injector) Delay(latency, jitter time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.latency, i.jitter = latency, jitter
}

// Reset removes all faults.
func (i *Injector) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failRate, i.latency, i.jitter = 0, 0, 0
}

// apply sleeps for the configured latency and then decides whether the call fails.
func (i *Injector) apply(ctx context.Context) error {
	i.mu.RLock()
	rate, delay, jitter := i.failRate, i.latency, i.jitter
	i.mu.RUnlock()

	if jitter > 0 {
		delay += rand.N(jitter)
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if rate > 0 && rand.Float64() < rate {
		return ErrInjected
	}
	return nil
}

// Catalog wraps a book store with the injector's faults.
func (i *Injector) Catalog(next catalog.Store) catalog.Store {
	return &faultyCatalog{next: next, faults: i}
}

// Circulation wraps a transaction store with the injector's faults.
func (i *Injector) Circulation(next circulation.Store) circulation.Store {
	return &faultyCirculation{next: next, faults: i}
}

type faultyCatalog struct {
	next   catalog.Store
	faults *Injector
}

func (s *faultyCatalog) Find(ctx context.Context, filter catalog.Filter, limit int) ([]catalog.Book, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.Find(ctx, filter, limit)
}

func (s *faultyCatalog) Distinct(ctx context.Context, field catalog.Field, filter catalog.Filter, limit int) ([]string, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.Distinct(ctx, field, filter, limit)
}

func (s *faultyCatalog) Get(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.Get(ctx, id)
}

func (s *faultyCatalog) Count(ctx context.Context, filter catalog.Filter) (int, error) {
	if err := s.faults.apply(ctx); err != nil {
		return 0, err
	}
	return s.next.Count(ctx, filter)
}

func (s *faultyCatalog) CountBy(ctx context.Context, field catalog.Field, limit int) ([]catalog.FieldCount, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.CountBy(ctx, field, limit)
}

type faultyCirculation struct {
	next   circulation.Store
	faults *Injector
}

func (s *faultyCirculation) Find(ctx context.Context, q circulation.Query) ([]circulation.Transaction, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.Find(ctx, q)
}

func (s *faultyCirculation) TopBooks(ctx context.Context, limit int) ([]circulation.BorrowCount, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.TopBooks(ctx, limit)
}

func (s *faultyCirculation) CountByStatus(ctx context.Context, q circulation.Query) (map[circulation.Status]int, error) {
	if err := s.faults.apply(ctx); err != nil {
		return nil, err
	}
	return s.next.CountByStatus(ctx, q)
}
