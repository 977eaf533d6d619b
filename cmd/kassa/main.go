package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kassa/internal/amqp"
	"kassa/internal/cache"
	"kassa/internal/charts"
	"kassa/internal/config"
	apphttp "kassa/internal/http"
	applog "kassa/internal/log"
	"kassa/internal/services"
	"kassa/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentApp, slog.LevelInfo)
	applog.SetDefault(logger)

	logger.Info("Starting kassa")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", applog.FieldError, err, "tz", cfg.Timezone)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Publisher is optional: with no broker configured expenses stay local.
	var publisher services.ExportPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Export publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Export publishing disabled - no AMQP_URL provided")
	}

	reporter := services.NewReporter(store, loc, cfg.DefaultBudget)
	registry := services.NewCategoryRegistry(store)
	ledger := services.NewExpenseLedger(store, reporter, publisher, loc, cfg.AllowImplicitCategories)

	srv := apphttp.NewServer(":"+cfg.Port, logger.WithComponent(applog.ComponentHTTP), apphttp.Deps{
		Registry: registry,
		Ledger:   ledger,
		Reporter: reporter,
		Charts:   charts.NewGenerator(),
		Ready:    store.Ping,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	janitor := cache.NewJanitor(10 * time.Minute)
	janitor.Register(srv.ReportCache())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
