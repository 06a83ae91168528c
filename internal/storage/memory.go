package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SeedFile is read by SeedFromDir to pre-populate a key.
const SeedFile = "seed_transactions.json"

type Memory struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

// SeedFromDir writes base/seed_transactions.json under key through s, so a
// wrapping store such as Encrypted seals the seed like any other write. A
// missing seed file is not an error.
func SeedFromDir(ctx context.Context, s Store, base, key string) (bool, error) {
	path := filepath.Join(base, SeedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read seed file %s: %w", path, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return false, fmt.Errorf("seed %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Close() error { return nil }
