package dashboard

import (
	"context"

	"gofinances/internal/core"
	"gofinances/internal/format"
)

// TransactionLister reads the stored transactions.
type TransactionLister interface {
	List(ctx context.Context) ([]core.Transaction, error)
}

// Loader reads, aggregates and formats the stored transactions.
type Loader struct {
	lister    TransactionLister
	formatter format.Formatter
}

func NewLoader(lister TransactionLister, f format.Formatter) *Loader {
	return &Loader{lister: lister, formatter: f}
}

// Load returns a freshly computed view. A missing key yields an empty view;
// a malformed record fails the whole load.
func (l *Loader) Load(ctx context.Context) (View, error) {
	txs, err := l.lister.List(ctx)
	if err != nil {
		return View{}, err
	}
	summary, err := Aggregate(txs)
	if err != nil {
		return View{}, err
	}
	return Present(txs, summary, l.formatter), nil
}
