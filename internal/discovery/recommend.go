// internal/discovery/recommend.go
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

// ParseMemberID validates the format of a member identifier.
func ParseMemberID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidMemberID, raw)
	}
	return id, nil
}

func (s *service) recommend(ctx context.Context, rawMemberID string) (*Recommendation, error) {
	memberID, err := ParseMemberID(rawMemberID)
	if err != nil {
		return nil, err
	}

	history, err := s.txns.Find(ctx, circulation.Query{MemberID: &memberID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch borrowing history: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(history))
	historyIDs := make([]uuid.UUID, 0, len(history))
	for _, t := range history {
		if _, ok := seen[t.BookID]; ok {
			continue
		}
		seen[t.BookID] = struct{}{}
		historyIDs = append(historyIDs, t.BookID)
	}

	var resolved map[uuid.UUID]catalog.Book
	if len(historyIDs) > 0 {
		resolved, err = s.resolveBooks(ctx, historyIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve borrowed books: %w", err)
		}
	}

	if len(resolved) == 0 {
		logging.Ctx(ctx).Debug().Str("member_id", memberID.String()).Msg("no borrowing history, recommending popular books")
		metrics.RecommendationFallbacks.Inc()

		books, err := s.popular(ctx, DefaultPopularLimit)
		if err != nil {
			return nil, err
		}
		return &Recommendation{
			Books:    books,
			Basis:    Basis{Categories: []string{}, Authors: []string{}},
			Fallback: true,
		}, nil
	}

	basis := deriveBasis(historyIDs, resolved)
	books, err := s.books.Find(ctx, similarTo(basis, historyIDs), MaxRecommendations)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch similar books: %w", err)
	}

	recs := make([]RankedBook, len(books))
	for i, b := range books {
		recs[i] = RankedBook{Book: b}
	}
	return &Recommendation{Books: recs, Basis: basis}, nil
}

// deriveBasis collects the distinct non-empty categories and authors of the
// resolved history, in borrow order.
func deriveBasis(order []uuid.UUID, resolved map[uuid.UUID]catalog.Book) Basis {
	basis := Basis{Categories: []string{}, Authors: []string{}}
	cats := make(map[string]struct{})
	authors := make(map[string]struct{})

	for _, id := range order {
		b, ok := resolved[id]
		if !ok {
			continue
		}
		if _, dup := cats[b.Category]; b.Category != "" && !dup {
			cats[b.Category] = struct{}{}
			basis.Categories = append(basis.Categories, b.Category)
		}
		if _, dup := authors[b.Author]; b.Author != "" && !dup {
			authors[b.Author] = struct{}{}
			basis.Authors = append(basis.Authors, b.Author)
		}
	}
	return basis
}

// similarTo matches books sharing a category or author with basis, excluding
// the member's own history.
func similarTo(basis Basis, exclude []uuid.UUID) catalog.Filter {
	similar := catalog.Or{}
	if len(basis.Categories) > 0 {
		similar = append(similar, catalog.In{Field: catalog.FieldCategory, Values: basis.Categories})
	}
	if len(basis.Authors) > 0 {
		similar = append(similar, catalog.In{Field: catalog.FieldAuthor, Values: basis.Authors})
	}
	return catalog.And{similar, catalog.IDNotIn{IDs: exclude}}
}
