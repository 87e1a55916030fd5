// internal/circulation/postgres.go
package circulation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          UUID PRIMARY KEY,
	member_id   UUID NOT NULL,
	book_id     UUID NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('borrowed', 'returned', 'overdue')),
	borrow_date TIMESTAMPTZ NOT NULL,
	due_date    TIMESTAMPTZ NOT NULL,
	return_date TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS transactions_member_idx ON transactions (member_id);
CREATE INDEX IF NOT EXISTS transactions_book_idx ON transactions (book_id);
CREATE INDEX IF NOT EXISTS transactions_borrow_date_idx ON transactions (borrow_date);
`

// PostgresStore reads transactions from the circulation read model.
type PostgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a transaction store backed by db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("libranexus/circulation"),
	}
}

// Migrate creates the transactions table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate transactions table: %w", err)
	}
	return nil
}

// Insert upserts transactions for seeding.
func (s *PostgresStore) Insert(ctx context.Context, txns ...Transaction) error {
	ctx, span := s.tracer.Start(ctx, "circulation.insert",
		trace.WithAttributes(attribute.Int("transaction.count", len(txns))),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (id, member_id, book_id, status, borrow_date, due_date, return_date)
		VALUES (:id, :member_id, :book_id, :status, :borrow_date, :due_date, :return_date)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, due_date = EXCLUDED.due_date, return_date = EXCLUDED.return_date
	`
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (q Query) where() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, cond+" $"+strconv.Itoa(len(args)))
	}

	if q.MemberID != nil {
		add("member_id =", *q.MemberID)
	}
	if q.BookID != nil {
		add("book_id =", *q.BookID)
	}
	if q.Status != nil {
		add("status =", string(*q.Status))
	}
	if q.BorrowedFrom != nil {
		add("borrow_date >=", *q.BorrowedFrom)
	}
	if q.BorrowedTo != nil {
		add("borrow_date <=", *q.BorrowedTo)
	}

	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

// Find returns matching transactions ordered by borrow date.
func (s *PostgresStore) Find(ctx context.Context, q Query) ([]Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.find")
	defer span.End()

	where, args := q.where()
	query := `
		SELECT id, member_id, book_id, status, borrow_date, due_date, return_date
		FROM transactions
		WHERE ` + where + `
		ORDER BY borrow_date, id
	`

	txns := []Transaction{}
	if err := s.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	span.SetAttributes(attribute.Int("transactions.found", len(txns)))
	return txns, nil
}

// TopBooks groups all transactions by book.
func (s *PostgresStore) TopBooks(ctx context.Context, limit int) ([]BorrowCount, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.top_books",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	query := `
		SELECT book_id, COUNT(*) AS borrow_count
		FROM transactions
		GROUP BY book_id
		ORDER BY borrow_count DESC, book_id
	`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	counts := []BorrowCount{}
	if err := s.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to aggregate borrow counts: %w", err)
	}
	return counts, nil
}

// CountByStatus counts matching transactions per status.
func (s *PostgresStore) CountByStatus(ctx context.Context, q Query) (map[Status]int, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.count_by_status")
	defer span.End()

	where, args := q.where()
	query := `SELECT status, COUNT(*) AS count FROM transactions WHERE ` + where + ` GROUP BY status`

	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count transactions by status: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
