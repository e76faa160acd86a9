// Package parcel holds the badger.DB open conventions histedit's session
// store builds on: create the directory first, open with warning-level
// logging so routine compaction doesn't spam the CLI's stderr.
package parcel

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// InitDB initializes and returns a BadgerDB instance at path.
func InitDB(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
