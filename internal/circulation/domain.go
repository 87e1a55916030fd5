// internal/circulation/domain.go
package circulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidStatus      = errors.New("invalid transaction status")
)

// Status is the lifecycle state of a borrow.
type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

// ParseStatus converts s to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusBorrowed, StatusReturned, StatusOverdue:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Transaction represents one borrow of a book by a member.
type Transaction struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	MemberID   uuid.UUID  `json:"member_id" db:"member_id"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	Status     Status     `json:"status" db:"status"`
	BorrowDate time.Time  `json:"borrow_date" db:"borrow_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
}

// Validate checks identifiers and status.
func (t Transaction) Validate() error {
	if t.ID == uuid.Nil || t.MemberID == uuid.Nil || t.BookID == uuid.Nil {
		return fmt.Errorf("%w: missing identifier", ErrInvalidTransaction)
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	if t.Status == StatusReturned && t.ReturnDate == nil {
		return fmt.Errorf("%w: returned without return date", ErrInvalidTransaction)
	}
	return nil
}

// BorrowCount is one row of the borrow-frequency aggregation.
type BorrowCount struct {
	BookID uuid.UUID `json:"book_id" db:"book_id"`
	Count  int       `json:"borrow_count" db:"borrow_count"`
}

// Query selects transactions. Nil fields are unconstrained; the borrow-date
// window is inclusive on both ends.
type Query struct {
	MemberID     *uuid.UUID
	BookID       *uuid.UUID
	Status       *Status
	BorrowedFrom *time.Time
	BorrowedTo   *time.Time
}

// Matches reports whether t satisfies q.
func (q Query) Matches(t Transaction) bool {
	if q.MemberID != nil && t.MemberID != *q.MemberID {
		return false
	}
	if q.BookID != nil && t.BookID != *q.BookID {
		return false
	}
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.BorrowedFrom != nil && t.BorrowDate.Before(*q.BorrowedFrom) {
		return false
	}
	if q.BorrowedTo != nil && t.BorrowDate.After(*q.BorrowedTo) {
		return false
	}
	return true
}
