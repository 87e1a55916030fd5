// internal/circulation/store.go
package circulation

import "context"

// Store defines read access to the transaction history.
type Store interface {
	// Find returns matching transactions ordered by borrow date.
	Find(ctx context.Context, q Query) ([]Transaction, error)
	// TopBooks counts transactions of any status per book, most borrowed first,
	// ties broken by book id. limit <= 0 means unlimited.
	TopBooks(ctx context.Context, limit int) ([]BorrowCount, error)
	CountByStatus(ctx context.Context, q Query) (map[Status]int, error)
}
