// internal/report/domain.go
package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/libranexus/discovery/internal/discovery"
)

var (
	ErrRateLimited   = errors.New("report rate limit exceeded")
	ErrInvalidPeriod = errors.New("invalid report period")
	ErrInvalidLimit  = errors.New("invalid report limit")
)

const (
	MinPopularLimit     = 1
	MaxPopularLimit     = 50
	AnalyticsTopBooks   = 5
	NoCategory          = "N/A"
	highUtilization     = 70.0
	lowUtilization      = 30.0
	lowAvailabilityRate = 0.2
)

// PopularBook is one row of the most-borrowed report.
type PopularBook struct {
	BookID      uuid.UUID `json:"book_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	BorrowCount int       `json:"borrow_count"`
}

type PopularBooksReport struct {
	ReportType  string        `json:"report_type"`
	Books       []PopularBook `json:"books"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Period bounds a report by borrow date. Nil ends are open.
type Period struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type BorrowingStats struct {
	TotalTransactions int `json:"total_transactions"`
	CurrentlyBorrowed int `json:"currently_borrowed"`
	Returned          int `json:"returned"`
	Overdue           int `json:"overdue"`
}

type BorrowingReport struct {
	ReportType  string         `json:"report_type"`
	Period      Period         `json:"period"`
	Data        BorrowingStats `json:"data"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type AnalyticsStats struct {
	TotalBooks          int     `json:"total_books"`
	AvailableBooks      int     `json:"available_books"`
	UtilizationRate     float64 `json:"utilization_rate"`
	TotalTransactions   int     `json:"total_transactions"`
	ActiveBorrows       int     `json:"active_borrows"`
	MostPopularCategory string  `json:"most_popular_category"`
}

type Analytics struct {
	Stats       AnalyticsStats         `json:"analytics"`
	TopBooks    []discovery.RankedBook `json:"top_books"`
	Insights    []string               `json:"insights"`
	GeneratedAt time.Time              `json:"generated_at"`
}
