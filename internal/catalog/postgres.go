// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const bookColumns = `id, isbn, title, author, category, publisher, publication_year, description,
	total_copies, available_copies, created_at, updated_at`

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id               UUID PRIMARY KEY,
	isbn             TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL,
	author           TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	publisher        TEXT NOT NULL DEFAULT '',
	publication_year INT NOT NULL DEFAULT 0,
	description      TEXT NOT NULL DEFAULT '',
	total_copies     INT NOT NULL DEFAULT 0 CHECK (total_copies >= 0),
	available_copies INT NOT NULL DEFAULT 0 CHECK (available_copies >= 0 AND available_copies <= total_copies),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS books_category_idx ON books (category);
CREATE INDEX IF NOT EXISTS books_author_idx ON books (author);
CREATE INDEX IF NOT EXISTS books_isbn_idx ON books (isbn);
`

// PostgresStore reads books from the PostgreSQL read model.
type PostgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a catalog store backed by db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("libranexus/catalog"),
	}
}

// Migrate creates the books table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate books table: %w", err)
	}
	return nil
}

// Insert upserts books. Used by seeding and tests; the discovery engine never writes.
func (s *PostgresStore) Insert(ctx context.Context, books ...Book) error {
	ctx, span := s.tracer.Start(ctx, "catalog.insert",
		trace.WithAttributes(attribute.Int("book.count", len(books))),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (:id, :isbn, :title, :author, :category, :publisher, :publication_year, :description,
			:total_copies, :available_copies, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			isbn = EXCLUDED.isbn, title = EXCLUDED.title, author = EXCLUDED.author,
			category = EXCLUDED.category, publisher = EXCLUDED.publisher,
			publication_year = EXCLUDED.publication_year, description = EXCLUDED.description,
			total_copies = EXCLUDED.total_copies, available_copies = EXCLUDED.available_copies,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	for i, b := range books {
		if err := b.Validate(); err != nil {
			return err
		}
		if b.CreatedAt.IsZero() {
			// keep argument order as store order
			b.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = b.CreatedAt
		}
		if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
			return fmt.Errorf("failed to insert book %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Find returns matching books in insertion order.
func (s *PostgresStore) Find(ctx context.Context, filter Filter, limit int) ([]Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.find",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	w := &whereBuilder{}
	where, err := w.build(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + where + ` ORDER BY created_at, id`
	if limit > 0 {
		query += ` LIMIT ` + w.arg(limit)
	}

	books := []Book{}
	if err := s.db.SelectContext(ctx, &books, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}

	span.SetAttributes(attribute.Int("books.found", len(books)))
	return books, nil
}

// Distinct returns unique non-empty values of field among matching books, sorted by value.
func (s *PostgresStore) Distinct(ctx context.Context, field Field, filter Filter, limit int) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.distinct",
		trace.WithAttributes(
			attribute.String("field", string(field)),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	col, err := textColumn(field)
	if err != nil {
		return nil, err
	}

	w := &whereBuilder{}
	where, err := w.build(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT DISTINCT ` + col + ` FROM books WHERE ` + col + ` <> '' AND (` + where + `) ORDER BY ` + col
	if limit > 0 {
		query += ` LIMIT ` + w.arg(limit)
	}

	values := []string{}
	if err := s.db.SelectContext(ctx, &values, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", col, err)
	}
	return values, nil
}

// Get retrieves a book by its ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.get",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	book := &Book{}
	err := s.db.GetContext(ctx, book, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
		}
		return nil, fmt.Errorf("failed to get book from read model: %w", err)
	}
	return book, nil
}

// Count returns the number of matching books.
func (s *PostgresStore) Count(ctx context.Context, filter Filter) (int, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.count")
	defer span.End()

	w := &whereBuilder{}
	where, err := w.build(filter)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM books WHERE `+where, w.args...); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

// CountBy groups books by a non-empty field value, ties broken by value.
func (s *PostgresStore) CountBy(ctx context.Context, field Field, limit int) ([]FieldCount, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.count_by",
		trace.WithAttributes(
			attribute.String("field", string(field)),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	col, err := textColumn(field)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + col + ` AS value, COUNT(*) AS count FROM books WHERE ` + col + ` <> '' GROUP BY ` + col +
		` ORDER BY count DESC, value`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	counts := []FieldCount{}
	if err := s.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to group books by %s: %w", col, err)
	}
	return counts, nil
}
