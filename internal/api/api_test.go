package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/discovery/internal/authz"
	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/report"
	"github.com/libranexus/discovery/internal/resilience"
)

var (
	dune = catalog.Book{
		ID: uuid.New(), ISBN: "9780441172719", Title: "Dune", Author: "Frank Herbert",
		Category: "Science Fiction", PublicationYear: 1965, TotalCopies: 3, AvailableCopies: 1,
	}
	foundation = catalog.Book{
		ID: uuid.New(), ISBN: "9780553293357", Title: "Foundation", Author: "Isaac Asimov",
		Category: "Science Fiction", PublicationYear: 1951, TotalCopies: 2, AvailableCopies: 0,
	}
	emma = catalog.Book{
		ID: uuid.New(), ISBN: "9780141439587", Title: "Emma", Author: "Jane Austen",
		Category: "Classics", PublicationYear: 1815, TotalCopies: 1, AvailableCopies: 1,
	}
	reader = uuid.New()
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *Error          `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type testServer struct {
	handler http.Handler
	auth    *authz.Authorizer
}

func borrowedAt(member, bookID uuid.UUID, day int) circulation.Transaction {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return circulation.Transaction{
		ID: uuid.New(), MemberID: member, BookID: bookID,
		Status: circulation.StatusBorrowed, BorrowDate: at, DueDate: at.AddDate(0, 0, 14),
	}
}

func newServer(t *testing.T, secret string) *testServer {
	t.Helper()
	books, err := catalog.NewMemoryStore(dune, foundation, emma)
	require.NoError(t, err)
	txns, err := circulation.NewMemoryStore(
		borrowedAt(reader, dune.ID, 0),
		borrowedAt(uuid.New(), dune.ID, 1),
		borrowedAt(uuid.New(), foundation.ID, 2),
	)
	require.NoError(t, err)
	return newServerWith(t, secret, books, txns)
}

func newServerWith(t *testing.T, secret string, books catalog.Store, txns circulation.Store) *testServer {
	t.Helper()
	engine := discovery.NewService(books, txns, discovery.Config{SearchLimit: 100})
	reports := report.NewService(engine, books, txns, report.Config{RatePerSecond: 100, Burst: 100})
	a, err := authz.New(authz.Config{Secret: secret, Issuer: "libranexus"})
	require.NoError(t, err)

	return &testServer{
		handler: NewRouter(NewHandler(engine, reports, books), a, Config{CORSOrigins: []string{"*"}}),
		auth:    a,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, role string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		token, err := s.auth.Sign("tester", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *testServer) get(t *testing.T, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return s.do(t, http.MethodGet, path, nil, "")
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func titles(books []catalog.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestHealthz(t *testing.T) {
	rec, env := newServer(t, "").get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "req-42", env.Meta.RequestID)
}

func TestAdvancedSearch(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.do(t, http.MethodPost, "/api/v1/search/advanced",
		[]byte(`{"category":"Science Fiction","available_only":true,"title":""}`), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[SearchResult](t, env.Data)
	assert.Equal(t, []string{"Dune"}, titles(got.Books))
	assert.Equal(t, 1, got.Total)
	require.NotNil(t, env.Meta.Count)
	assert.Equal(t, 1, *env.Meta.Count)

	_, env = s.do(t, http.MethodPost, "/api/v1/search/advanced", []byte(`{}`), "")
	assert.Equal(t, 3, decode[SearchResult](t, env.Data).Total)

	_, env = s.do(t, http.MethodPost, "/api/v1/search/advanced",
		[]byte(`{"publication_year_min":1900,"publication_year_max":1960}`), "")
	assert.Equal(t, []string{"Foundation"}, titles(decode[SearchResult](t, env.Data).Books))
}

func TestAdvancedSearchRejectsBadBodies(t *testing.T) {
	s := newServer(t, "")

	for name, body := range map[string]string{
		"malformed":     `{"title":`,
		"unknown field": `{"colour":"red"}`,
		"year type":     `{"publication_year_min":"old"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, env := s.do(t, http.MethodPost, "/api/v1/search/advanced", []byte(body), "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, CodeBadRequest, env.Error.Code)
		})
	}

	rec, env := s.do(t, http.MethodPost, "/api/v1/search/advanced", []byte(`{"publication_year_min":-5}`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidationFailed, env.Error.Code)
}

func TestSuggestions(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.get(t, "/api/v1/search/suggestions?q=fo")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[SuggestionsResult](t, env.Data)
	assert.Equal(t, []string{"Foundation"}, got.Suggestions)
	assert.Equal(t, "all", got.Type)

	_, env = s.get(t, "/api/v1/search/suggestions?q=sc&type=categories")
	assert.Equal(t, []string{"Science Fiction"}, decode[SuggestionsResult](t, env.Data).Suggestions)

	_, env = s.get(t, "/api/v1/search/suggestions?q=fo&type=authors")
	assert.Empty(t, decode[SuggestionsResult](t, env.Data).Suggestions)
}

func TestSuggestionsValidation(t *testing.T) {
	s := newServer(t, "")
	for _, path := range []string{
		"/api/v1/search/suggestions",
		"/api/v1/search/suggestions?q=f",
		"/api/v1/search/suggestions?q=fo&type=isbn",
	} {
		rec, env := s.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, CodeValidationFailed, env.Error.Code, path)
	}
}

func TestTextSearch(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.get(t, "/api/v1/search/text?q=asimov")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[TextSearchResult](t, env.Data)
	assert.Equal(t, "asimov", got.Query)
	require.Len(t, got.Books, 1)
	assert.Equal(t, foundation.ID, got.Books[0].ID)
	assert.Equal(t, discovery.AuthorWeight, got.Books[0].Score)

	_, env = s.get(t, "/api/v1/search/text?q=science")
	assert.Equal(t, 2, decode[TextSearchResult](t, env.Data).Total)

	rec, _ = s.get(t, "/api/v1/search/text?q=du")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPopular(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.get(t, "/api/v1/search/popular")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[PopularResult](t, env.Data)
	require.Len(t, got.Books, 2)
	assert.Equal(t, dune.ID, got.Books[0].ID)
	assert.Equal(t, 2, got.Books[0].BorrowCount)

	_, env = s.get(t, "/api/v1/search/popular?limit=1")
	assert.Len(t, decode[PopularResult](t, env.Data).Books, 1)

	for _, q := range []string{"0", "51", "ten"} {
		rec, _ := s.get(t, "/api/v1/search/popular?limit="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRecommendations(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.get(t, "/api/v1/search/recommendations/"+reader.String())
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[discovery.Recommendation](t, env.Data)
	assert.Equal(t, []string{"Science Fiction"}, got.Basis.Categories)
	require.Len(t, got.Books, 1)
	assert.Equal(t, foundation.ID, got.Books[0].ID)

	rec, env = s.get(t, "/api/v1/search/recommendations/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, env.Error.Code)
}

func TestBookLookups(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.get(t, "/api/v1/books/"+dune.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dune", decode[catalog.Book](t, env.Data).Title)

	_, env = s.get(t, "/api/v1/books/"+foundation.ID.String()+"/availability")
	assert.Equal(t, Availability{BookID: foundation.ID, TotalCopies: 2}, decode[Availability](t, env.Data))

	rec, env = s.get(t, "/api/v1/books/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)

	rec, _ = s.get(t, "/api/v1/books/42")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, env = s.get(t, "/api/v1/books/categories")
	assert.Equal(t, []string{"Classics", "Science Fiction"}, decode[[]string](t, env.Data))

	_, env = s.get(t, "/api/v1/books/authors")
	assert.Equal(t, []string{"Frank Herbert", "Isaac Asimov", "Jane Austen"}, decode[[]string](t, env.Data))
}

func TestReports(t *testing.T) {
	s := newServer(t, "")

	rec, env := s.get(t, "/api/v1/reports/popular-books?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	pop := decode[report.PopularBooksReport](t, env.Data)
	require.Len(t, pop.Books, 2)
	assert.Equal(t, "Dune", pop.Books[0].Title)

	_, env = s.get(t, "/api/v1/reports/borrowing?start_date=2024-03-02&end_date=2024-03-03")
	assert.Equal(t, 2, decode[report.BorrowingReport](t, env.Data).Data.TotalTransactions)

	_, env = s.get(t, "/api/v1/reports/borrowing?end_date=2024-03-01T00:00:00Z")
	assert.Equal(t, 1, decode[report.BorrowingReport](t, env.Data).Data.TotalTransactions)

	for _, path := range []string{
		"/api/v1/reports/popular-books?limit=0",
		"/api/v1/reports/borrowing?start_date=yesterday",
		"/api/v1/reports/borrowing?start_date=2024-05-01&end_date=2024-04-01",
	} {
		rec, _ := s.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec, env = s.get(t, "/api/v1/analytics")
	require.Equal(t, http.StatusOK, rec.Code)
	an := decode[report.Analytics](t, env.Data)
	assert.Equal(t, 3, an.Stats.TotalBooks)
	assert.Equal(t, "Science Fiction", an.Stats.MostPopularCategory)
}

func TestAuthorization(t *testing.T) {
	s := newServer(t, "secret")
	path := "/api/v1/reports/borrowing"

	rec, env := s.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, env.Error.Code)

	rec, env = s.do(t, http.MethodGet, path, nil, authz.RoleMember)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeForbidden, env.Error.Code)

	rec, _ = s.do(t, http.MethodGet, path, nil, authz.RoleLibrarian)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/search/text?q=dune", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/search/recommendations/"+reader.String(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/search/recommendations/"+reader.String(), nil, authz.RoleMember)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	books, err := catalog.NewMemoryStore(dune)
	require.NoError(t, err)
	txns, err := circulation.NewMemoryStore()
	require.NoError(t, err)
	engine := discovery.NewService(books, txns, discovery.Config{})
	reports := report.NewService(engine, books, txns, report.Config{RatePerSecond: 1, Burst: 1})
	h := NewRouter(NewHandler(engine, reports, books), nil, Config{RateLimit: 2, RateWindow: time.Minute})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books/categories", nil))
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

// brokenCatalog fails every call with err.
type brokenCatalog struct {
	catalog.Store
	err error
}

func (b brokenCatalog) Get(context.Context, uuid.UUID) (*catalog.Book, error) { return nil, b.err }

func (b brokenCatalog) Distinct(context.Context, catalog.Field, catalog.Filter, int) ([]string, error) {
	return nil, b.err
}

func TestStoreFailuresAreMapped(t *testing.T) {
	txns, err := circulation.NewMemoryStore()
	require.NoError(t, err)

	open := newServerWith(t, "", brokenCatalog{err: fmt.Errorf("failed to get book: %w", resilience.ErrUnavailable)}, txns)
	rec, env := open.get(t, "/api/v1/books/"+dune.ID.String())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeServiceUnavailable, env.Error.Code)

	internal := newServerWith(t, "", brokenCatalog{err: errors.New("pq: password authentication failed")}, txns)
	rec, env = internal.get(t, "/api/v1/books/categories")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUnknownRoute(t *testing.T) {
	rec, env := newServer(t, "").get(t, "/api/v1/nothing-here")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}
