//go:build integration

package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/discovery/internal/testinfra"
)

func titlesOf(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestPostgresStoreAgreesWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	pg := NewPostgresStore(testinfra.Postgres(t))
	require.NoError(t, pg.Migrate(ctx))

	mem, books := seededStore(t)
	books[0].Description = "Spice, sand 100% & worms_"
	books[0].PublicationYear = 1965
	books[2].PublicationYear = 1815
	require.NoError(t, mem.Add(books[0], books[2]))
	require.NoError(t, pg.Insert(ctx, books...))

	minYear, maxYear := 1800, 1900
	filters := map[string]Filter{
		"all":          nil,
		"contains":     Contains{Field: FieldTitle, Value: "DUNE"},
		"literal %":    Contains{Field: FieldDescription, Value: "100%"},
		"literal _":    Contains{Field: FieldDescription, Value: "s_"},
		"prefix":       HasPrefix{Field: FieldAuthor, Value: "jane"},
		"equals":       Equals{Field: FieldCategory, Value: "Classics"},
		"in":           In{Field: FieldAuthor, Values: []string{"Jane Austen", "William Gibson"}},
		"id in":        IDIn{IDs: []uuid.UUID{books[1].ID, books[4].ID}},
		"id not in":    IDNotIn{IDs: []uuid.UUID{books[0].ID}},
		"range":        Range{Field: FieldPublicationYear, Min: &minYear, Max: &maxYear},
		"greater than": GreaterThan{Field: FieldAvailableCopies, Value: 0},
		"or":           Or{Equals{Field: FieldTitle, Value: "Emma"}, Contains{Field: FieldAuthor, Value: "gibson"}},
		"and":          And{Equals{Field: FieldCategory, Value: "Science Fiction"}, GreaterThan{Field: FieldAvailableCopies, Value: 0}},
		"empty or":     Or{},
		"empty and":    And{},
		"empty in":     In{Field: FieldAuthor},
	}
	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			want, err := mem.Find(ctx, f, 0)
			require.NoError(t, err)
			got, err := pg.Find(ctx, f, 0)
			require.NoError(t, err)
			assert.Equal(t, titlesOf(want), titlesOf(got))

			wantN, err := mem.Count(ctx, f)
			require.NoError(t, err)
			gotN, err := pg.Count(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, wantN, gotN)
		})
	}
}

func TestPostgresStoreLookups(t *testing.T) {
	ctx := context.Background()
	pg := NewPostgresStore(testinfra.Postgres(t))
	require.NoError(t, pg.Migrate(ctx))
	_, books := seededStore(t)
	require.NoError(t, pg.Insert(ctx, books...))

	got, err := pg.Get(ctx, books[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Title)

	_, err = pg.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBookNotFound)

	authors, err := pg.Distinct(ctx, FieldAuthor, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frank Herbert", "Jane Austen", "William Gibson"}, authors)

	titles, err := pg.Distinct(ctx, FieldTitle, HasPrefix{Field: FieldTitle, Value: "du"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, titles)

	counts, err := pg.CountBy(ctx, FieldCategory, 0)
	require.NoError(t, err)
	assert.Equal(t, []FieldCount{{Value: "Science Fiction", Count: 3}, {Value: "Classics", Count: 2}}, counts)

	limited, err := pg.Find(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Dune Messiah"}, titlesOf(limited))

	_, err = pg.Find(ctx, Contains{Field: "shelf", Value: "x"}, 0)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestPostgresStoreRejectsInvalidBooks(t *testing.T) {
	ctx := context.Background()
	pg := NewPostgresStore(testinfra.Postgres(t))
	require.NoError(t, pg.Migrate(ctx))

	bad := newBook("Broken", "Nobody", "None", 1)
	bad.AvailableCopies = 5
	assert.ErrorIs(t, pg.Insert(ctx, bad), ErrInvalidBook)
}
