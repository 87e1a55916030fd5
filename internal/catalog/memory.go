// internal/catalog/memory.go
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a goroutine-safe in-process catalog. Books keep insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	books []Book
	index map[uuid.UUID]int
}

// NewMemoryStore creates a store holding books.
func NewMemoryStore(books ...Book) (*MemoryStore, error) {
	s := &MemoryStore{index: make(map[uuid.UUID]int)}
	if err := s.Add(books...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add inserts books, replacing any with the same id in place.
func (s *MemoryStore) Add(books ...Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range books {
		if err := b.Validate(); err != nil {
			return err
		}
		if i, ok := s.index[b.ID]; ok {
			s.books[i] = b
			continue
		}
		s.index[b.ID] = len(s.books)
		s.books = append(s.books, b)
	}
	return nil
}

// Remove deletes a book. Ranking treats ids of removed books as stale.
func (s *MemoryStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return
	}
	s.books = append(s.books[:i], s.books[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.books); j++ {
		s.index[s.books[j].ID] = j
	}
}

func (s *MemoryStore) Find(ctx context.Context, filter Filter, limit int) ([]Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Book{}
	for _, b := range s.books {
		if limit > 0 && len(out) >= limit {
			break
		}
		if Match(filter, b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) Distinct(ctx context.Context, field Field, filter Filter, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !field.IsText() {
		return nil, fmt.Errorf("%w: %q is not a text field", ErrUnknownField, field)
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	seen := make(map[string]struct{})
	values := []string{}
	for _, b := range s.books {
		v := b.text(field)
		if v == "" || !Match(filter, b) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	s.mu.RUnlock()

	sort.Strings(values)
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return values, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	b := s.books[i]
	return &b, nil
}

func (s *MemoryStore) Count(ctx context.Context, filter Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateFilter(filter); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.books {
		if Match(filter, b) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountBy(ctx context.Context, field Field, limit int) ([]FieldCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !field.IsText() {
		return nil, fmt.Errorf("%w: %q is not a text field", ErrUnknownField, field)
	}

	s.mu.RLock()
	totals := make(map[string]int)
	for _, b := range s.books {
		if v := b.text(field); v != "" {
			totals[v]++
		}
	}
	s.mu.RUnlock()

	counts := make([]FieldCount, 0, len(totals))
	for v, n := range totals {
		counts = append(counts, FieldCount{Value: v, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Value < counts[j].Value
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

// validateFilter rejects filters the Postgres compiler would reject, so both
// stores fail on the same input.
func validateFilter(f Filter) error {
	_, err := (&whereBuilder{}).build(f)
	return err
}
