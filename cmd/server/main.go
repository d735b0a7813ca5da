package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"tender_watch/internal/config"
	"tender_watch/internal/publisher"
	"tender_watch/internal/registry"
	"tender_watch/internal/scheduler"
	"tender_watch/internal/server"
	"tender_watch/internal/service"
	"tender_watch/internal/source/boamp"
	"tender_watch/internal/source/place"
	"tender_watch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	cacheStore := postgres.NewCacheStore(db)

	reg := registry.New()

	// Initialize sources; order sets dedup priority.
	boampSource := boamp.New(boamp.Config{
		BaseURL:        cfg.Boamp.BaseURL,
		PageSize:       cfg.Boamp.PageSize,
		MaxRecords:     cfg.Boamp.MaxRecords,
		Timeout:        cfg.Boamp.Timeout,
		RequestDelay:   cfg.Boamp.RequestDelay,
		MaxAttempts:    cfg.Boamp.Retry.MaxAttempts,
		InitialBackoff: cfg.Boamp.Retry.InitialBackoff,
		MaxBackoff:     cfg.Boamp.Retry.MaxBackoff,
	}, reg.All(), logger)

	placeSource := place.New(place.Config{
		BaseURL: cfg.Place.BaseURL,
		Timeout: cfg.Place.Timeout,
	}, logger)

	aggregator := service.NewAggregator(
		[]service.SourceSpec{
			{Fetcher: boampSource, TTL: cfg.Cache.BoampTTL, Timeout: cfg.Boamp.Timeout},
			{Fetcher: placeSource, TTL: cfg.Cache.PlaceTTL, Timeout: cfg.Place.Timeout},
		},
		cacheStore,
		reg,
		rabbitMQ,
		logger,
	)

	sched := scheduler.New(aggregator, cfg.Scheduler.Interval, cfg.Scheduler.Timeout, logger)

	srv := server.New(aggregator, db, cfg.Server.AdminSecret, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	go func() {
		logger.Info("starting http server",
			"addr", cfg.Server.Addr,
			"primary", boampSource.Name(),
			"secondary", placeSource.Name(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
