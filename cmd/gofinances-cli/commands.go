package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gofinances/internal/amqp"
	"gofinances/internal/cli"
	"gofinances/internal/config"
	"gofinances/internal/core"
	"gofinances/internal/dashboard"
	"gofinances/internal/events"
	"gofinances/internal/format"
	"gofinances/internal/log"
	"gofinances/internal/services"
	"gofinances/internal/storage"
)

// Globals are shared by every command. Unset flags fall back to the
// environment, the same configuration the server reads.
type Globals struct {
	Backend  string        `help:"Storage backend (memory, jsonfile, sqlite, redis)." env:"DATA_BACKEND"`
	Key      string        `help:"Storage key holding the transaction list." env:"STORAGE_KEY"`
	Locale   string        `help:"Locale used to format amounts and dates." env:"LOCALE"`
	LogLevel string        `help:"Log level." default:"warn" env:"LOG_LEVEL"`
	Timeout  time.Duration `help:"Timeout for storage operations." default:"10s"`

	out io.Writer
}

type session struct {
	repo    *storage.TransactionRepository
	svc     *services.TransactionService
	bus     *events.Bus
	screen  *dashboard.Screen
	cleanup func() error
}

func (g *Globals) open(ctx context.Context) (*session, error) {
	logger := cli.SetupLogger(g.LogLevel)

	cfg := config.Load()
	if g.Backend != "" {
		cfg.DataBackend = g.Backend
	}
	if g.Key != "" {
		cfg.StorageKey = g.Key
	}
	if g.Locale != "" {
		cfg.Locale = g.Locale
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	locale, err := format.ForTag(cfg.Locale)
	if err != nil {
		return nil, err
	}

	res := cli.OpenStore(ctx, logger, cfg)
	repo := storage.NewTransactionRepository(res.Store, cfg.StorageKey)
	bus := events.NewBus()
	notifier, closeNotifier := openNotifier(cfg, logger)

	return &session{
		repo:   repo,
		svc:    services.NewTransactionService(repo, bus, notifier, logger),
		bus:    bus,
		screen: dashboard.NewScreen(dashboard.NewLoader(repo, locale), bus, cfg.LoadTimeout, logger),
		cleanup: func() error {
			closeNotifier()
			return res.Cleanup()
		},
	}, nil
}

// openNotifier connects to the broker when one is configured, so running
// servers refresh after a CLI write. An unreachable broker only disables the
// notification.
func openNotifier(cfg *config.Config, logger *log.Logger) (services.Notifier, func()) {
	if cfg.AMQPURL == "" {
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to connect to AMQP, running dashboards will not be notified", "error", err)
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

// view shows the dashboard screen: it attaches the screen to the bus and
// announces it as visible, which runs one load.
func (s *session) view(ctx context.Context) (dashboard.View, error) {
	s.screen.Attach()
	defer s.screen.Unmount()

	s.bus.Publish(ctx, events.Visible)
	state := s.screen.Snapshot()
	return state.View, state.Err
}

func (g *Globals) writer() io.Writer {
	if g.out != nil {
		return g.out
	}
	return os.Stdout
}

// withSession runs fn against an open store and releases it afterwards.
func (g *Globals) withSession(fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	s, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer s.cleanup()
	return fn(ctx, s)
}

type showCmd struct {
	JSON bool `help:"Print the view as JSON."`
}

func (c *showCmd) Run(g *Globals) error {
	return g.withSession(func(ctx context.Context, s *session) error {
		view, err := s.view(ctx)
		if err != nil {
			return err
		}
		if c.JSON {
			enc := json.NewEncoder(g.writer())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		return printView(g.writer(), view)
	})
}

func printView(w io.Writer, v dashboard.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	h := v.Highlight
	fmt.Fprintf(tw, "Entradas\t%s\t%s\n", h.Entries.Amount, h.Entries.LastTransaction)
	fmt.Fprintf(tw, "Saídas\t%s\t%s\n", h.Expenses.Amount, h.Expenses.LastTransaction)
	fmt.Fprintf(tw, "Total\t%s\t%s\n", h.Total.Amount, h.Total.LastTransaction)
	fmt.Fprintln(tw)
	for _, t := range v.Transactions {
		amount := t.Amount
		if t.Type == core.Negative {
			amount = "- " + amount
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, amount, t.Category.Name, t.Date)
	}
	return tw.Flush()
}

type addCmd struct {
	Type     core.TransactionType `required:"" enum:"positive,negative" help:"positive for income, negative for an expense."`
	Title    string               `arg:"" help:"Title of the transaction."`
	Amount   string               `arg:"" help:"Amount in major units, e.g. 59,90."`
	Category string               `required:"" help:"Category name."`
	Icon     string               `help:"Category icon name."`
	Date     string               `help:"Date as YYYY-MM-DD; defaults to today."`
}

func (c *addCmd) Run(g *Globals) error {
	in := services.NewTransaction{
		Type:     c.Type,
		Title:    c.Title,
		Amount:   c.Amount,
		Category: core.Category{Name: c.Category, Icon: c.Icon},
	}
	if c.Date != "" {
		d, err := time.Parse(time.DateOnly, c.Date)
		if err != nil {
			return fmt.Errorf("date %q: %w", c.Date, core.ErrInvalidDate)
		}
		in.Date = d
	}

	return g.withSession(func(ctx context.Context, s *session) error {
		t, err := s.svc.AddTransaction(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(g.writer(), t.ID)
		return nil
	})
}

type deleteCmd struct {
	ID string `arg:"" help:"Transaction id."`
}

func (c *deleteCmd) Run(g *Globals) error {
	return g.withSession(func(ctx context.Context, s *session) error {
		return s.svc.DeleteTransaction(ctx, c.ID)
	})
}

type importCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON file with the transaction list."`
}

func (c *importCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	return g.withSession(func(ctx context.Context, s *session) error {
		n, err := s.svc.Import(ctx, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.writer(), "imported %d transactions into %s\n", n, s.repo.Key())
		return nil
	})
}

type exportCmd struct {
	Output string `short:"o" help:"Write to this file instead of stdout."`
}

func (c *exportCmd) Run(g *Globals) error {
	return g.withSession(func(ctx context.Context, s *session) error {
		data, err := s.svc.Export(ctx)
		if err != nil {
			return err
		}
		if c.Output != "" {
			return os.WriteFile(c.Output, data, 0o644)
		}
		_, err = fmt.Fprintln(g.writer(), string(data))
		return err
	})
}
