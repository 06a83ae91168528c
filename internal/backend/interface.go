package backend

import (
	"context"
	"time"

	"gofinances/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store and optional cleanup function
type Result struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// jsonfile and memory seed directory
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Key the transaction list lives under; used to seed the memory store.
	StorageKey string

	// Optional decorators
	EncryptionKey string
	ReadRetries   int
	RetryWindow   time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	JSONFileBackend BackendType = "jsonfile"
	SQLiteBackend   BackendType = "sqlite"
	RedisBackend    BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, JSONFileBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
