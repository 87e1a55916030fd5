// internal/fixture/fixture.go

// Package fixture loads a library snapshot of books and borrow transactions
// used to seed stores.
package fixture

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/libranexus/discovery/internal/catalog"
	"github.com/libranexus/discovery/internal/circulation"
)

//go:embed library.json
var sample []byte

// Library is a snapshot of the catalog and its circulation history.
type Library struct {
	Books        []catalog.Book            `json:"books"`
	Transactions []circulation.Transaction `json:"transactions"`
}

// Sample returns the built-in demonstration library.
func Sample() (*Library, error) {
	return Decode(bytes.NewReader(sample))
}

// Load reads a library from path. An empty path yields the sample library.
func Load(path string) (*Library, error) {
	if path == "" {
		return Sample()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a library. Every transaction must reference a
// book in the snapshot.
func Decode(r io.Reader) (*Library, error) {
	var lib Library
	if err := json.NewDecoder(r).Decode(&lib); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	known := make(map[string]bool, len(lib.Books))
	for _, b := range lib.Books {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("book %q: %w", b.Title, err)
		}
		known[b.ID.String()] = true
	}
	for _, t := range lib.Transactions {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if !known[t.BookID.String()] {
			return nil, fmt.Errorf("transaction %s: unknown book %s", t.ID, t.BookID)
		}
	}
	return &lib, nil
}

// MemoryStores builds in-memory stores holding the library.
func (l *Library) MemoryStores() (*catalog.MemoryStore, *circulation.MemoryStore, error) {
	books, err := catalog.NewMemoryStore(l.Books...)
	if err != nil {
		return nil, nil, err
	}
	txns, err := circulation.NewMemoryStore(l.Transactions...)
	if err != nil {
		return nil, nil, err
	}
	return books, txns, nil
}
