//go:build integration

package fixture

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/testinfra"
)

// TestEngineAgreesAcrossStores runs every engine operation against the sample
// library held in memory and in PostgreSQL.
func TestEngineAgreesAcrossStores(t *testing.T) {
	ctx := context.Background()
	lib, err := Sample()
	require.NoError(t, err)

	db := testinfra.Postgres(t)
	pgBooks := catalog.NewPostgresStore(db)
	pgTxns := circulation.NewPostgresStore(db)
	require.NoError(t, pgBooks.Migrate(ctx))
	require.NoError(t, pgTxns.Migrate(ctx))
	require.NoError(t, pgBooks.Insert(ctx, lib.Books...))
	require.NoError(t, pgTxns.Insert(ctx, lib.Transactions...))

	memBooks, memTxns, err := lib.MemoryStores()
	require.NoError(t, err)

	cfg := discovery.Config{SearchLimit: 1000}
	mem := discovery.NewService(memBooks, memTxns, cfg)
	pg := discovery.NewService(pgBooks, pgTxns, cfg)

	t.Run("search", func(t *testing.T) {
		sf, year := "Science Fiction", 1960
		for _, c := range []discovery.Criteria{
			{},
			{Category: &sf},
			{Category: &sf, AvailableOnly: true},
			{YearMax: &year},
		} {
			want, err := mem.Search(ctx, c)
			require.NoError(t, err)
			got, err := pg.Search(ctx, c)
			require.NoError(t, err)
			assert.Equal(t, catalogIDs(want), catalogIDs(got))
		}
	})

	t.Run("suggest", func(t *testing.T) {
		for _, frag := range []string{"th", "ja", "fa", "a "} {
			want, err := mem.Suggest(ctx, frag, discovery.ScopeAll)
			require.NoError(t, err)
			got, err := pg.Suggest(ctx, frag, discovery.ScopeAll)
			require.NoError(t, err)
			assert.Equal(t, want, got, frag)
		}
	})

	t.Run("text search", func(t *testing.T) {
		for _, q := range []string{"the", "tolkien", "murder", "penguin"} {
			want, err := mem.TextSearch(ctx, q)
			require.NoError(t, err)
			got, err := pg.TextSearch(ctx, q)
			require.NoError(t, err)
			require.Len(t, got, len(want), q)
			for i := range want {
				assert.Equal(t, want[i].ID, got[i].ID, q)
				assert.Equal(t, want[i].Score, got[i].Score, q)
			}
		}
	})

	t.Run("popular", func(t *testing.T) {
		want, err := mem.Popular(ctx, 10)
		require.NoError(t, err)
		got, err := pg.Popular(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.Equal(t, want[i].BorrowCount, got[i].BorrowCount)
		}
	})

	t.Run("recommend", func(t *testing.T) {
		members := map[uuid.UUID]bool{uuid.New(): true}
		for _, tx := range lib.Transactions {
			members[tx.MemberID] = true
		}
		for m := range members {
			want, err := mem.Recommend(ctx, m.String())
			require.NoError(t, err)
			got, err := pg.Recommend(ctx, m.String())
			require.NoError(t, err)
			assert.Equal(t, want.Basis, got.Basis)
			assert.Equal(t, want.Fallback, got.Fallback)
			require.Len(t, got.Books, len(want.Books))
			for i := range want.Books {
				assert.Equal(t, want.Books[i].ID, got.Books[i].ID)
			}
		}
	})
}

func catalogIDs(books []catalog.Book) []uuid.UUID {
	out := make([]uuid.UUID, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}
