package storage

import (
	"context"
	"errors"
	"fmt"

	"gofinances/internal/core"
)

// TransactionRepository reads and writes the transaction list kept under a
// single key.
type TransactionRepository struct {
	store Store
	key   string
}

func NewTransactionRepository(store Store, key string) *TransactionRepository {
	if key == "" {
		key = DefaultKey
	}
	return &TransactionRepository{store: store, key: key}
}

func (r *TransactionRepository) Key() string {
	return r.key
}

// List returns the stored transactions in stored order. A missing key is an
// empty list.
func (r *TransactionRepository) List(ctx context.Context) ([]core.Transaction, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}

	txs, err := core.DecodeTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}

// Save replaces the stored list.
func (r *TransactionRepository) Save(ctx context.Context, txs []core.Transaction) error {
	data, err := core.EncodeTransactions(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("write transactions: %w", err)
	}
	return nil
}
