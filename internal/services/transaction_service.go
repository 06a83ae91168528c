package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gofinances/internal/core"
	"gofinances/internal/events"
	"gofinances/internal/log"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateID         = errors.New("duplicate transaction id")
)

// ValidationError wraps a failure caused by the caller's input. Errors from
// the stored list are never wrapped, even when they carry the same causes.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

// Repository reads and replaces the stored transaction list.
type Repository interface {
	Key() string
	List(ctx context.Context) ([]core.Transaction, error)
	Save(ctx context.Context, txs []core.Transaction) error
}

// Notifier tells other processes that the stored list changed.
type Notifier interface {
	PublishChanged(ctx context.Context, key string) error
}

// NewTransaction is the user input for a transaction. Amount is decimal
// text in major units; a zero Date means today.
type NewTransaction struct {
	Type     core.TransactionType `json:"type"`
	Title    string               `json:"title"`
	Amount   string               `json:"amount"`
	Category core.Category        `json:"category"`
	Date     time.Time            `json:"date"`
}

// TransactionService orchestrates writes to the stored list and the change
// notifications that follow them.
type TransactionService struct {
	repo     Repository
	bus      events.Publisher
	notifier Notifier
	logger   *log.Logger

	// serializes read-modify-write cycles within this process
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewTransactionService(repo Repository, bus events.Publisher, notifier Notifier, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Nop()
	}
	return &TransactionService{
		repo:     repo,
		bus:      bus,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentTransaction),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// AddTransaction validates in, appends it to the stored list and announces
// the change.
func (s *TransactionService) AddTransaction(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, invalid(fmt.Errorf("amount %q: %w", in.Amount, err))
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	t := core.Transaction{
		ID:     s.newID(),
		Type:   in.Type,
		Title:  strings.TrimSpace(in.Title),
		Amount: amount,
		Category: core.Category{
			Name: strings.TrimSpace(in.Category.Name),
			Icon: strings.TrimSpace(in.Category.Icon),
		},
		Date: core.DateOf(date),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.repo.List(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("list transactions: %w", err)
	}
	txs = append(txs, t)
	if _, err := core.Summarize(txs); err != nil {
		return core.Transaction{}, invalid(fmt.Errorf("amount %q: %w", in.Amount, core.ErrTotalOverflow))
	}
	if err := s.repo.Save(ctx, txs); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx, t.ID, string(t.Type), t.Amount.Cents, t.Category.Name)
	s.changed(ctx)
	return t, nil
}

// DeleteTransaction removes the transaction with the given id.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	idx := -1
	for i, t := range txs {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	rest := append(txs[:idx:idx], txs[idx+1:]...)
	if err := s.repo.Save(ctx, rest); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)
	s.changed(ctx)
	return nil
}

// Import replaces the stored list with the collection in data. The whole
// payload is validated first; nothing is written when any record is invalid.
func (s *TransactionService) Import(ctx context.Context, data []byte) (int, error) {
	txs, err := core.DecodeTransactions(data)
	if err != nil {
		return 0, invalid(err)
	}
	seen := make(map[string]struct{}, len(txs))
	for i, t := range txs {
		if _, dup := seen[t.ID]; dup {
			return 0, invalid(&core.RecordError{Index: i, ID: t.ID, Field: "id", Err: ErrDuplicateID})
		}
		seen[t.ID] = struct{}{}
	}
	if _, err := core.Summarize(txs); err != nil {
		return 0, invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(ctx, txs); err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}

	s.logger.InfoContext(ctx, "Transactions imported",
		log.FieldCount, len(txs),
		log.FieldOperation, log.OpImport,
		log.FieldStorageKey, s.repo.Key())
	s.changed(ctx)
	return len(txs), nil
}

// Export returns the stored list in its serialized shape.
func (s *TransactionService) Export(ctx context.Context) ([]byte, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.EncodeTransactions(txs)
}

func (s *TransactionService) changed(ctx context.Context) {
	if s.bus != nil {
		s.bus.Publish(ctx, events.TransactionsChanged)
	}
	if s.notifier == nil {
		return
	}
	// The write already succeeded; other processes will catch up on their
	// next visibility reload.
	if err := s.notifier.PublishChanged(ctx, s.repo.Key()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change notification",
			log.NewFields().
				WithError(err).
				WithErrorType(log.ErrorTypeNetwork).
				WithOperation(log.OpPublish).
				WithStorageKey(s.repo.Key()).
				ToSlice()...)
	}
}

// IsValidationError reports whether err was caused by invalid user input.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
