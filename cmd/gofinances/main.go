package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gofinances/internal/amqp"
	"gofinances/internal/cli"
	"gofinances/internal/config"
	"gofinances/internal/dashboard"
	"gofinances/internal/events"
	"gofinances/internal/format"
	apphttp "gofinances/internal/http"
	"gofinances/internal/log"
	"gofinances/internal/services"
	"gofinances/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", log.NewFields().WithError(err).WithOperation(log.OpShutdown).ToSlice()...)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	res := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Store cleanup error", "error", err)
		}
	}()

	locale, err := format.ForTag(cfg.Locale)
	if err != nil {
		return err
	}

	repo := storage.NewTransactionRepository(res.Store, cfg.StorageKey)
	bus := events.NewBus()
	loader := dashboard.NewLoader(repo, locale)
	screen := dashboard.NewScreen(loader, bus, cfg.LoadTimeout, logger)

	// AMQP is optional; without it only this process sees its own writes
	// until the next page view.
	var (
		amqpClient *amqp.Client
		notifier   services.Notifier
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change notifications", "error", err)
		} else {
			defer amqpClient.Close()
			notifier = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(repo, bus, notifier, logger)

	if err := screen.Mount(ctx); err != nil {
		logger.Warn("Initial dashboard load failed", "error", err)
	}
	defer screen.Unmount()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Bus:          bus,
		Screen:       screen,
		Loader:       loader,
		Transactions: svc,
		Ready: func(ctx context.Context) error {
			_, err := res.Store.Get(ctx, repo.Key())
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		},
		Profile: apphttp.Profile{
			DisplayName: cfg.DisplayName,
			AvatarURL:   cfg.AvatarURL,
			Lang:        locale.Tag.String(),
		},
		Logger: logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting gofinances server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"locale", locale.Tag.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeChanged(gctx, func(ctx context.Context, msg *amqp.ChangedMessage) error {
				if msg.Key != repo.Key() {
					return nil
				}
				bus.Publish(ctx, events.TransactionsChanged)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
