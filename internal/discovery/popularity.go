// internal/discovery/popularity.go
package discovery

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/logging"
	"github.com/libranexus/discovery/internal/metrics"
)

// bookResolver loads the current records for ids. Ids without a record are
// absent from the result.
type bookResolver func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Book, error)

// rankPopular turns borrow counts into ranked books. The order of counts is
// kept; ids that no longer resolve are dropped.
func rankPopular(ctx context.Context, counts []circulation.BorrowCount, resolve bookResolver) ([]RankedBook, error) {
	ranked := []RankedBook{}
	if len(counts) == 0 {
		return ranked, nil
	}

	ids := make([]uuid.UUID, len(counts))
	for i, c := range counts {
		ids[i] = c.BookID
	}

	books, err := resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ranked books: %w", err)
	}

	for _, c := range counts {
		b, ok := books[c.BookID]
		if !ok {
			logging.Ctx(ctx).Debug().Str("book_id", c.BookID.String()).Msg("dropping ranked book missing from catalog")
			metrics.RankingDropped.Inc()
			continue
		}
		ranked = append(ranked, RankedBook{Book: b, BorrowCount: c.Count})
	}
	return ranked, nil
}

// resolveBooks is the catalog-backed bookResolver.
func (s *service) resolveBooks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Book, error) {
	books, err := s.books.Find(ctx, catalog.IDIn{IDs: ids}, 0)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]catalog.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	return byID, nil
}

func (s *service) popular(ctx context.Context, limit int) ([]RankedBook, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}

	counts, err := s.txns.TopBooks(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate borrow counts: %w", err)
	}

	return rankPopular(ctx, counts, s.resolveBooks)
}
