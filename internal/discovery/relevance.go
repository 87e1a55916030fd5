// internal/discovery/relevance.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/libranexus/discovery/internal/catalog"
)

// candidateFields select text-search candidates. Only title, author and
// description contribute to the score.
var candidateFields = []catalog.Field{
	catalog.FieldTitle,
	catalog.FieldAuthor,
	catalog.FieldDescription,
	catalog.FieldCategory,
	catalog.FieldPublisher,
}

// Score returns 10*[title hit] + 5*[author hit] + 3*[description hit] for query.
func Score(b catalog.Book, query string) int {
	score := 0
	if catalog.ContainsFold(b.Title, query) {
		score += TitleWeight
	}
	if catalog.ContainsFold(b.Author, query) {
		score += AuthorWeight
	}
	if catalog.ContainsFold(b.Description, query) {
		score += DescriptionWeight
	}
	return score
}

// rankByRelevance scores books and orders them by descending score. Equal
// scores keep their input order.
func rankByRelevance(books []catalog.Book, query string) []ScoredBook {
	scored := make([]ScoredBook, len(books))
	for i, b := range books {
		scored[i] = ScoredBook{Book: b, Score: Score(b, query)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func (s *service) textSearch(ctx context.Context, query string) ([]ScoredBook, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	match := make(catalog.Or, 0, len(candidateFields))
	for _, f := range candidateFields {
		match = append(match, catalog.Contains{Field: f, Value: query})
	}

	candidates, err := s.books.Find(ctx, match, TextSearchCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch text search candidates: %w", err)
	}

	return rankByRelevance(candidates, query), nil
}
