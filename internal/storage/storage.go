// Package storage keeps serialized blobs under string keys.
//
// The dashboard reads one key holding the whole transaction list; backends
// differ only in where the bytes live.
package storage

import (
	"context"
	"errors"
)

// DefaultKey is the key the mobile app stores its transactions under.
const DefaultKey = "@gofinances:transactions"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
