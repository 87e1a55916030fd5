// internal/api/handlers.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/report"
)

// Handler serves the discovery, catalog lookup and reporting endpoints.
type Handler struct {
	engine  discovery.Service
	reports report.Service
	books   catalog.Store
}

func NewHandler(engine discovery.Service, reports report.Service, books catalog.Store) *Handler {
	return &Handler{engine: engine, reports: reports, books: books}
}

type SearchResult struct {
	Books []catalog.Book `json:"books"`
	Total int            `json:"total"`
}

type SuggestionsResult struct {
	Suggestions []string `json:"suggestions"`
	Type        string   `json:"type"`
}

type TextSearchResult struct {
	Books []discovery.ScoredBook `json:"books"`
	Query string                 `json:"query"`
	Total int                    `json:"total"`
}

type PopularResult struct {
	Books []discovery.RankedBook `json:"popular_books"`
	Total int                    `json:"total"`
}

type Availability struct {
	BookID          uuid.UUID `json:"book_id"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	Available       bool      `json:"is_available"`
}

func (h *Handler) HandleAdvancedSearch(w http.ResponseWriter, r *http.Request) {
	var req AdvancedSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	if err := validateRequest(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	books, err := h.engine.Search(r.Context(), req.criteria())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, SearchResult{Books: books, Total: len(books)}, len(books))
}

func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	req := SuggestionsRequest{
		Query: r.URL.Query().Get("q"),
		Type:  r.URL.Query().Get("type"),
	}
	if err := validateRequest(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	scope, err := discovery.ParseScope(req.Type)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	suggestions, err := h.engine.Suggest(r.Context(), req.Query, scope)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, SuggestionsResult{Suggestions: suggestions, Type: string(scope)}, len(suggestions))
}

func (h *Handler) HandleTextSearch(w http.ResponseWriter, r *http.Request) {
	req := TextSearchRequest{Query: r.URL.Query().Get("q")}
	if err := validateRequest(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	books, err := h.engine.TextSearch(r.Context(), req.Query)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, TextSearchResult{Books: books, Query: req.Query, Total: len(books)}, len(books))
}

func (h *Handler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", discovery.DefaultPopularLimit)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	req := LimitRequest{Limit: limit}
	if err := validateRequest(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	books, err := h.engine.Popular(r.Context(), req.Limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, PopularResult{Books: books, Total: len(books)}, len(books))
}

func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.Recommend(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, rec, len(rec.Books))
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	book, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respond(w, r, book)
}

func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	book, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respond(w, r, Availability{
		BookID:          book.ID,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		Available:       book.IsAvailable(),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*catalog.Book, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondBadRequest(w, r, "invalid book id")
		return nil, false
	}
	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	return book, true
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, catalog.FieldCategory)
}

func (h *Handler) HandleAuthors(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, catalog.FieldAuthor)
}

func (h *Handler) distinct(w http.ResponseWriter, r *http.Request, field catalog.Field) {
	values, err := h.books.Distinct(r.Context(), field, nil, 0)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, values, len(values))
}

func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.reports.Analytics(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, a)
}

func (h *Handler) HandlePopularReport(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", discovery.DefaultPopularLimit)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	rep, err := h.reports.PopularBooks(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, rep)
}

func (h *Handler) HandleBorrowingReport(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	rep, err := h.reports.Borrowing(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, rep)
}
