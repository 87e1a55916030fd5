// internal/report/service.go

// Package report builds librarian reports and library analytics on top of the
// discovery engine's popularity ranking.
package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
	"github.com/libranexus/discovery/internal/discovery"
)

// Service defines the reporting operations.
type Service interface {
	PopularBooks(ctx context.Context, limit int) (*PopularBooksReport, error)
	Borrowing(ctx context.Context, p Period) (*BorrowingReport, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

// Config throttles the aggregation queries reports issue.
type Config struct {
	RatePerSecond float64
	Burst         int
}

type service struct {
	engine  discovery.Service
	books   catalog.Store
	txns    circulation.Store
	limiter *rate.Limiter
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a report service.
func NewService(engine discovery.Service, books catalog.Store, txns circulation.Store, cfg Config) Service {
	return &service{
		engine:  engine,
		books:   books,
		txns:    txns,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		tracer:  otel.Tracer("libranexus/report"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) allow() error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

// PopularBooks lists the most borrowed books using the shared popularity ranking.
func (s *service) PopularBooks(ctx context.Context, limit int) (*PopularBooksReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.popular_books",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	if limit < MinPopularLimit || limit > MaxPopularLimit {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidLimit, limit, MinPopularLimit, MaxPopularLimit)
	}
	if err := s.allow(); err != nil {
		return nil, err
	}

	ranked, err := s.engine.Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank popular books: %w", err)
	}

	books := make([]PopularBook, len(ranked))
	for i, r := range ranked {
		books[i] = PopularBook{
			BookID:      r.ID,
			Title:       r.Title,
			Author:      r.Author,
			BorrowCount: r.BorrowCount,
		}
	}

	return &PopularBooksReport{
		ReportType:  "popular_books",
		Books:       books,
		GeneratedAt: s.now(),
	}, nil
}

// Borrowing counts transactions per status within p.
func (s *service) Borrowing(ctx context.Context, p Period) (*BorrowingReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.borrowing")
	defer span.End()

	if p.StartDate != nil && p.EndDate != nil && p.StartDate.After(*p.EndDate) {
		return nil, fmt.Errorf("%w: start_date after end_date", ErrInvalidPeriod)
	}
	if err := s.allow(); err != nil {
		return nil, err
	}

	counts, err := s.txns.CountByStatus(ctx, circulation.Query{
		BorrowedFrom: p.StartDate,
		BorrowedTo:   p.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	stats := BorrowingStats{
		CurrentlyBorrowed: counts[circulation.StatusBorrowed],
		Returned:          counts[circulation.StatusReturned],
		Overdue:           counts[circulation.StatusOverdue],
	}
	stats.TotalTransactions = stats.CurrentlyBorrowed + stats.Returned + stats.Overdue

	return &BorrowingReport{
		ReportType:  "borrowing",
		Period:      p,
		Data:        stats,
		GeneratedAt: s.now(),
	}, nil
}

// Analytics summarises catalog usage.
func (s *service) Analytics(ctx context.Context) (*Analytics, error) {
	ctx, span := s.tracer.Start(ctx, "report.analytics")
	defer span.End()

	if err := s.allow(); err != nil {
		return nil, err
	}

	totalBooks, err := s.books.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	availableBooks, err := s.books.Count(ctx, catalog.GreaterThan{Field: catalog.FieldAvailableCopies, Value: 0})
	if err != nil {
		return nil, fmt.Errorf("failed to count available books: %w", err)
	}
	byStatus, err := s.txns.CountByStatus(ctx, circulation.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	categories, err := s.books.CountBy(ctx, catalog.FieldCategory, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to group books by category: %w", err)
	}
	top, err := s.engine.Popular(ctx, AnalyticsTopBooks)
	if err != nil {
		return nil, fmt.Errorf("failed to rank popular books: %w", err)
	}

	stats := AnalyticsStats{
		TotalBooks:          totalBooks,
		AvailableBooks:      availableBooks,
		ActiveBorrows:       byStatus[circulation.StatusBorrowed],
		MostPopularCategory: NoCategory,
	}
	for _, n := range byStatus {
		stats.TotalTransactions += n
	}
	if totalBooks > 0 {
		stats.UtilizationRate = round2(float64(stats.ActiveBorrows) / float64(totalBooks) * 100)
	}
	if len(categories) > 0 {
		stats.MostPopularCategory = categories[0].Value
	}

	return &Analytics{
		Stats:       stats,
		TopBooks:    top,
		Insights:    insights(stats),
		GeneratedAt: s.now(),
	}, nil
}

func insights(st AnalyticsStats) []string {
	out := []string{}
	switch {
	case st.UtilizationRate > highUtilization:
		out = append(out, "High book utilization! Consider expanding the collection.")
	case st.UtilizationRate < lowUtilization:
		out = append(out, "Low book utilization. Consider marketing campaigns to increase borrowing.")
	}
	if float64(st.AvailableBooks) < float64(st.TotalBooks)*lowAvailabilityRate {
		out = append(out, "Low book availability. Many books are currently borrowed.")
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
