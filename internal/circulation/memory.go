// internal/circulation/memory.go
package circulation

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a goroutine-safe in-process transaction history.
type MemoryStore struct {
	mu   sync.RWMutex
	txns []Transaction
}

// NewMemoryStore creates a store holding txns.
func NewMemoryStore(txns ...Transaction) (*MemoryStore, error) {
	s := &MemoryStore{}
	if err := s.Add(txns...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends transactions.
func (s *MemoryStore) Add(txns ...Transaction) error {
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, txns...)
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := []Transaction{}
	for _, t := range s.txns {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BorrowDate.Before(out[j].BorrowDate)
	})
	return out, nil
}

func (s *MemoryStore) TopBooks(ctx context.Context, limit int) ([]BorrowCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	totals := make(map[uuid.UUID]int)
	for _, t := range s.txns {
		totals[t.BookID]++
	}
	s.mu.RUnlock()

	counts := make([]BorrowCount, 0, len(totals))
	for id, n := range totals {
		counts = append(counts, BorrowCount{BookID: id, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return bytes.Compare(counts[i].BookID[:], counts[j].BookID[:]) < 0
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context, q Query) (map[Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Status]int)
	for _, t := range s.txns {
		if q.Matches(t) {
			counts[t.Status]++
		}
	}
	return counts, nil
}
