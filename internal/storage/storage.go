// Package storage holds the badger-backed repositories for users,
// meetings and mail jobs. Keys are namespaced by prefix:
//
//	user:<id>          user record
//	user_email:<email> email → user id index
//	meeting:<id>       meeting record
//	mail:<id>          mail job record
package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the data directory. An empty dir opens an in-memory store,
// which is what the tests use.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return db, nil
}
