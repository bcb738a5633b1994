// Package kvstore is the versioned key-value persistence used by the
// preference, configuration, and mask stores. Each key holds one whole JSON
// document together with the schema version it was written with.
package kvstore

import (
	"context"
	"fmt"
	"time"
)

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
)

// Record is one stored document.
type Record struct {
	Key       string
	Version   int
	Value     []byte
	UpdatedAt time.Time
}

// Store is implemented by every backend. Get returns apperr.ErrNotFound for
// missing keys.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Open opens the backend named by driver at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverPebble:
		return OpenPebble(path)
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", driver)
	}
}
