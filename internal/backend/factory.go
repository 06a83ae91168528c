package backend

import (
	"context"
	"fmt"

	"gofinances/internal/log"
	"gofinances/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new store factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateStore builds the configured store and wraps it with encryption and
// read retries when those are enabled. Encryption sits closest to the raw
// store so that retries never see a ciphertext error as transient.
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case MemoryBackend:
		store = storage.NewMemory()
	case JSONFileBackend:
		store, err = storage.NewJSONFile(config.DataDirectory)
	case SQLiteBackend:
		store, err = storage.NewSQLiteStore(config.SQLiteDBPath)
	case RedisBackend:
		store, err = storage.NewRedisStore(config.RedisAddr, config.RedisPassword, config.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", config.Type, err)
	}

	if config.EncryptionKey != "" {
		key, err := storage.KeyFromSecret(config.EncryptionKey)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("storage encryption key: %w", err)
		}
		store = storage.NewEncrypted(store, key)
	}

	// Seeding goes through the encryption layer so the seed is readable with
	// the same key as later writes.
	if config.Type == MemoryBackend && config.DataDirectory != "" {
		if err := f.seedMemoryStore(ctx, store, config); err != nil {
			store.Close()
			return nil, err
		}
	}

	if config.ReadRetries > 0 {
		store = storage.NewRetrying(store, uint64(config.ReadRetries), config.RetryWindow)
	}

	f.logger.InfoContext(ctx, "Initialized store",
		"backend", config.Type.String(),
		"encrypted", config.EncryptionKey != "",
		"read_retries", config.ReadRetries)

	return &Result{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) seedMemoryStore(ctx context.Context, store storage.Store, config Config) error {
	key := config.StorageKey
	if key == "" {
		key = storage.DefaultKey
	}
	seeded, err := storage.SeedFromDir(ctx, store, config.DataDirectory, key)
	if err != nil {
		return fmt.Errorf("failed to seed memory store: %w", err)
	}
	if seeded {
		f.logger.InfoContext(ctx, "Seeded memory store", "data_directory", config.DataDirectory)
	}
	return nil
}
