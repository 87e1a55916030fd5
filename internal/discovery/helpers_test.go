package discovery

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
)

var errStoreDown = errors.New("connection refused")

func book(title, author, category string) catalog.Book {
	return catalog.Book{
		ID:              uuid.New(),
		Title:           title,
		Author:          author,
		Category:        category,
		TotalCopies:     2,
		AvailableCopies: 1,
	}
}

func borrowed(member, bookID uuid.UUID, day int) circulation.Transaction {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return circulation.Transaction{
		ID:         uuid.New(),
		MemberID:   member,
		BookID:     bookID,
		Status:     circulation.StatusBorrowed,
		BorrowDate: at,
		DueDate:    at.AddDate(0, 0, 14),
	}
}

type fixture struct {
	books *catalog.MemoryStore
	txns  *circulation.MemoryStore
	spy   *countingCatalog
	txSpy *countingCirculation
	svc   Service
}

// tb is satisfied by both *testing.T and *rapid.T.
type tb interface {
	require.TestingT
	Helper()
}

func newFixture(t tb, books []catalog.Book, txns []circulation.Transaction) *fixture {
	t.Helper()
	bs, err := catalog.NewMemoryStore(books...)
	require.NoError(t, err)
	ts, err := circulation.NewMemoryStore(txns...)
	require.NoError(t, err)

	spy := &countingCatalog{Store: bs}
	txSpy := &countingCirculation{Store: ts}
	return &fixture{
		books: bs,
		txns:  ts,
		spy:   spy,
		txSpy: txSpy,
		svc:   NewService(spy, txSpy, Config{SearchLimit: 1000}),
	}
}

// countingCatalog records how often the engine touched the catalog.
type countingCatalog struct {
	catalog.Store
	calls atomic.Int64
}

func (c *countingCatalog) Find(ctx context.Context, f catalog.Filter, limit int) ([]catalog.Book, error) {
	c.calls.Add(1)
	return c.Store.Find(ctx, f, limit)
}

func (c *countingCatalog) Distinct(ctx context.Context, field catalog.Field, f catalog.Filter, limit int) ([]string, error) {
	c.calls.Add(1)
	return c.Store.Distinct(ctx, field, f, limit)
}

type countingCirculation struct {
	circulation.Store
	calls atomic.Int64
}

func (c *countingCirculation) Find(ctx context.Context, q circulation.Query) ([]circulation.Transaction, error) {
	c.calls.Add(1)
	return c.Store.Find(ctx, q)
}

type failingCatalog struct{ catalog.Store }

func (failingCatalog) Find(context.Context, catalog.Filter, int) ([]catalog.Book, error) {
	return nil, errStoreDown
}

func (failingCatalog) Distinct(context.Context, catalog.Field, catalog.Filter, int) ([]string, error) {
	return nil, errStoreDown
}

type failingCirculation struct{ circulation.Store }

func (failingCirculation) Find(context.Context, circulation.Query) ([]circulation.Transaction, error) {
	return nil, errStoreDown
}

func (failingCirculation) TopBooks(context.Context, int) ([]circulation.BorrowCount, error) {
	return nil, errStoreDown
}

func ids(books []RankedBook) []uuid.UUID {
	out := make([]uuid.UUID, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
