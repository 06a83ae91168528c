package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gtank/cryptopasta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, DefaultKey, []byte(`[{"id":"1"}]`)))
	got, err := s.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, s.Set(ctx, DefaultKey, []byte(`[]`)))
	got, err = s.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Set(ctx, "other", []byte(`x`)))

	require.NoError(t, s.Delete(ctx, DefaultKey))
	require.NoError(t, s.Delete(ctx, DefaultKey))
	_, err = s.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSeedFromDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := NewMemory()

	seeded, err := SeedFromDir(ctx, m, dir, DefaultKey)
	require.NoError(t, err)
	assert.False(t, seeded)
	_, err = m.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte(`[]`), 0o644))
	seeded, err = SeedFromDir(ctx, m, dir, DefaultKey)
	require.NoError(t, err)
	assert.True(t, seeded)
	got, err := m.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestSeedFromDirThroughEncryption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte(`[{"id":"1"}]`), 0o644))

	inner := NewMemory()
	s := NewEncrypted(inner, cryptopasta.NewEncryptionKey())
	_, err := SeedFromDir(ctx, s, dir, DefaultKey)
	require.NoError(t, err)

	raw, err := inner.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"id"`)

	got, err := s.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))
}

func TestJSONFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONFile(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestJSONFileEscapesKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONFile(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "@gofinances:transactions", []byte("[]")))

	_, err = os.Stat(filepath.Join(dir, "%40gofinances%3Atransactions.json"))
	assert.NoError(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), DefaultKey, []byte("[]")))
	require.NoError(t, s.Close())

	// migrations are idempotent
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}
