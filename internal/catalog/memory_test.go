package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBook(title, author, category string, available int) Book {
	return Book{
		ID:              uuid.New(),
		Title:           title,
		Author:          author,
		Category:        category,
		TotalCopies:     available + 1,
		AvailableCopies: available,
	}
}

func seededStore(t *testing.T) (*MemoryStore, []Book) {
	t.Helper()
	books := []Book{
		newBook("Dune", "Frank Herbert", "Science Fiction", 2),
		newBook("Dune Messiah", "Frank Herbert", "Science Fiction", 0),
		newBook("Emma", "Jane Austen", "Classics", 1),
		newBook("Persuasion", "Jane Austen", "Classics", 1),
		newBook("Neuromancer", "William Gibson", "Science Fiction", 1),
	}
	s, err := NewMemoryStore(books...)
	require.NoError(t, err)
	return s, books
}

func TestMemoryStoreFindKeepsOrderAndLimit(t *testing.T) {
	s, books := seededStore(t)
	ctx := context.Background()

	all, err := s.Find(ctx, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, books, all)

	limited, err := s.Find(ctx, Equals{Field: FieldCategory, Value: "Science Fiction"}, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "Dune", limited[0].Title)
	assert.Equal(t, "Dune Messiah", limited[1].Title)
}

func TestMemoryStoreFindEmptyIsNotNil(t *testing.T) {
	s, _ := seededStore(t)
	got, err := s.Find(context.Background(), Equals{Field: FieldTitle, Value: "missing"}, 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryStoreDistinct(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()

	authors, err := s.Distinct(ctx, FieldAuthor, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frank Herbert", "Jane Austen", "William Gibson"}, authors)

	prefixed, err := s.Distinct(ctx, FieldTitle, HasPrefix{Field: FieldTitle, Value: "du"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Dune Messiah"}, prefixed)

	capped, err := s.Distinct(ctx, FieldTitle, nil, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	_, err = s.Distinct(ctx, FieldPublicationYear, nil, 0)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestMemoryStoreGetAndRemove(t *testing.T) {
	s, books := seededStore(t)
	ctx := context.Background()

	got, err := s.Get(ctx, books[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Title)

	s.Remove(books[2].ID)
	_, err = s.Get(ctx, books[2].ID)
	assert.ErrorIs(t, err, ErrBookNotFound)

	got, err = s.Get(ctx, books[4].ID)
	require.NoError(t, err)
	assert.Equal(t, "Neuromancer", got.Title)
}

func TestMemoryStoreCounts(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx, GreaterThan{Field: FieldAvailableCopies, Value: 0})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	counts, err := s.CountBy(ctx, FieldCategory, 0)
	require.NoError(t, err)
	assert.Equal(t, []FieldCount{
		{Value: "Science Fiction", Count: 3},
		{Value: "Classics", Count: 2},
	}, counts)

	top, err := s.CountBy(ctx, FieldAuthor, 1)
	require.NoError(t, err)
	assert.Equal(t, []FieldCount{{Value: "Frank Herbert", Count: 2}}, top)
}

func TestMemoryStoreAddRejectsInvalid(t *testing.T) {
	s, _ := seededStore(t)
	bad := newBook("Broken", "Nobody", "None", 1)
	bad.AvailableCopies = 10
	assert.ErrorIs(t, s.Add(bad), ErrInvalidBook)
}

func TestMemoryStoreHonoursCancellation(t *testing.T) {
	s, _ := seededStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
