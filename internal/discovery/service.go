// internal/discovery/service.go

// Package discovery implements catalog search, suggestions, relevance-ranked
// text search, popularity ranking and personalized recommendations.
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/metrics"
)

// Service defines the discovery operations. All of them are read-only.
type Service interface {
	Search(ctx context.Context, c Criteria) ([]catalog.Book, error)
	Suggest(ctx context.Context, fragment string, scope Scope) ([]string, error)
	TextSearch(ctx context.Context, query string) ([]ScoredBook, error)
	Recommend(ctx context.Context, memberID string) (*Recommendation, error)
	Popular(ctx context.Context, limit int) ([]RankedBook, error)
}

// Config tunes the engine.
type Config struct {
	// SearchLimit caps advanced search results. Zero means unlimited.
	SearchLimit int
}

// service implements the Service interface.
type service struct {
	books  catalog.Store
	txns   circulation.Store
	cfg    Config
	tracer trace.Tracer
}

// NewService creates a discovery engine reading from books and txns.
func NewService(books catalog.Store, txns circulation.Store, cfg Config) Service {
	return &service{
		books:  books,
		txns:   txns,
		cfg:    cfg,
		tracer: otel.Tracer("libranexus/discovery"),
	}
}

// Search returns books matching every present criterion, in store order.
func (s *service) Search(ctx context.Context, c Criteria) (books []catalog.Book, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "discovery.search")
	defer func() { s.finish(span, "search", start, len(books), err) }()

	books, err = s.books.Find(ctx, BuildFilter(c), s.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	return books, nil
}

// Suggest returns up to MaxSuggestions distinct values starting with fragment.
func (s *service) Suggest(ctx context.Context, fragment string, scope Scope) (out []string, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "discovery.suggest",
		trace.WithAttributes(attribute.String("scope", string(scope))),
	)
	defer func() { s.finish(span, "suggest", start, len(out), err) }()

	return s.suggest(ctx, fragment, scope)
}

// TextSearch scores up to TextSearchCandidates books containing query.
func (s *service) TextSearch(ctx context.Context, query string) (out []ScoredBook, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "discovery.text_search")
	defer func() { s.finish(span, "text_search", start, len(out), err) }()

	return s.textSearch(ctx, query)
}

// Recommend suggests books similar to the member's borrowing history.
func (s *service) Recommend(ctx context.Context, memberID string) (rec *Recommendation, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "discovery.recommend",
		trace.WithAttributes(attribute.String("member.id", memberID)),
	)
	defer func() {
		n := 0
		if rec != nil {
			n = len(rec.Books)
			span.SetAttributes(attribute.Bool("fallback", rec.Fallback))
		}
		s.finish(span, "recommend", start, n, err)
	}()

	return s.recommend(ctx, memberID)
}

// Popular returns the most borrowed books. limit <= 0 means DefaultPopularLimit.
func (s *service) Popular(ctx context.Context, limit int) (out []RankedBook, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "discovery.popular",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer func() { s.finish(span, "popular", start, len(out), err) }()

	return s.popular(ctx, limit)
}

func (s *service) finish(span trace.Span, op string, start time.Time, results int, err error) {
	defer span.End()

	metrics.EngineDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.EngineOperations.WithLabelValues(op, "error").Inc()
		return
	}
	span.SetAttributes(attribute.Int("results", results))
	metrics.EngineOperations.WithLabelValues(op, "ok").Inc()
	metrics.EngineResults.WithLabelValues(op).Observe(float64(results))
}
