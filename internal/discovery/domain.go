// internal/discovery/domain.go
package discovery

import (
	"errors"

	"github.com/libranexus/discovery/internal/catalog"
)

var (
	ErrInvalidMemberID = errors.New("invalid member id")
	ErrInvalidScope    = errors.New("invalid suggestion scope")
	ErrEmptyQuery      = errors.New("search query is empty")
)

const (
	// MinFragmentLength is the shortest fragment that produces suggestions.
	MinFragmentLength = 2
	// SuggestionsPerField bounds the matches taken from each field.
	SuggestionsPerField = 5
	// MaxSuggestions bounds the merged suggestion list.
	MaxSuggestions = 10

	// TextSearchCandidates bounds the candidate set before scoring.
	TextSearchCandidates = 20
	TitleWeight          = 10
	AuthorWeight         = 5
	DescriptionWeight    = 3

	DefaultPopularLimit = 10
	MaxRecommendations  = 10
)

// ScoredBook is a book with its relevance to one text query.
type ScoredBook struct {
	catalog.Book
	Score int `json:"relevance_score"`
}

// RankedBook is a book with the number of times it was borrowed. BorrowCount
// is zero for personalized recommendations.
type RankedBook struct {
	catalog.Book
	BorrowCount int `json:"borrow_count,omitempty"`
}

// Basis lists the history attributes a recommendation was derived from.
type Basis struct {
	Categories []string `json:"categories"`
	Authors    []string `json:"authors"`
}

// Recommendation is the result of Recommend. Fallback is set when the member
// had no usable history and Books is the popularity ranking.
type Recommendation struct {
	Books    []RankedBook `json:"recommendations"`
	Basis    Basis        `json:"based_on"`
	Fallback bool         `json:"fallback"`
}
