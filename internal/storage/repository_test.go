package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofinances/internal/core"
)

func TestTransactionRepositoryMissingKeyIsEmpty(t *testing.T) {
	repo := NewTransactionRepository(NewMemory(), "")
	assert.Equal(t, DefaultKey, repo.Key())

	txs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NotNil(t, txs)
}

func TestTransactionRepositorySaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(NewMemory(), "k")
	in := []core.Transaction{
		{ID: "1", Type: core.Positive, Title: "Salary", Amount: core.Money{Cents: 10000},
			Category: core.Category{Name: "Work", Icon: "dollar-sign"}, Date: core.NewDate(2020, 4, 1)},
		{ID: "2", Type: core.Negative, Title: "Rent", Amount: core.Money{Cents: 4000},
			Category: core.Category{Name: "Home", Icon: "home"}, Date: core.NewDate(2020, 4, 2)},
	}
	require.NoError(t, repo.Save(ctx, in))

	out, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTransactionRepositoryMalformed(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Set(ctx, DefaultKey, []byte(`[{"id":"1","type":"positive","title":"x","amount":"abc","date":"2020-04-10"}]`)))

	_, err := NewTransactionRepository(store, DefaultKey).List(ctx)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}
