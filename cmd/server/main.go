package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-dataset-compiler/internal/api"
	"github.com/trogers1052/stock-dataset-compiler/internal/config"
	"github.com/trogers1052/stock-dataset-compiler/internal/database"
	"github.com/trogers1052/stock-dataset-compiler/internal/dataset"
	"github.com/trogers1052/stock-dataset-compiler/internal/kafka"
	"github.com/trogers1052/stock-dataset-compiler/internal/logger"
	"github.com/trogers1052/stock-dataset-compiler/internal/metrics"
	"github.com/trogers1052/stock-dataset-compiler/internal/pipeline"
	"github.com/trogers1052/stock-dataset-compiler/internal/provider"
	"github.com/trogers1052/stock-dataset-compiler/internal/scheduler"
	"github.com/trogers1052/stock-dataset-compiler/internal/universe"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info"})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().Msg("Starting stock dataset compiler")

	// run returns before exiting so every deferred close has happened
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	// Compiler
	opts := dataset.DefaultOptions()
	opts.Indices = cfg.Pipeline.Indices
	opts.Period = cfg.Pipeline.TrainingPeriod
	opts.InferencePeriod = cfg.Pipeline.InferencePeriod
	opts.Workers = cfg.Pipeline.Workers
	opts.FetchTimeout = cfg.Pipeline.FetchTimeout
	opts.ProgressEvery = cfg.Pipeline.ProgressEvery
	opts.DropColumns = cfg.Pipeline.DropColumns
	compiler := dataset.NewCompiler(provider.NewYahooClient(log), opts, recorder, log)

	deps := pipeline.Deps{Compiler: compiler, Metrics: recorder}
	var runs api.RunStore
	sched := scheduler.New(log)

	// Initialize database
	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database.ConnectionString(), cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info().Msg("Connected to database")
		deps.Store = db
		runs = db

		if cfg.Database.Retention > 0 {
			job := pipeline.NewRetentionJob(db, cfg.Database.Retention, log)
			if err := sched.AddJob(cfg.Database.RetentionSchedule, job); err != nil {
				return fmt.Errorf("failed to register retention job: %w", err)
			}
		}
	}

	// Universe cache
	var cache universe.Cache
	if cfg.Redis.Enabled {
		rc, err := universe.NewRedisCache(ctx, universe.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without universe cache")
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	loader := universe.NewLoader(cfg.Universe.SourceURL, cfg.Universe.ArtifactPath, cache, log)
	deps.Universe = loader

	if cfg.Pipeline.ExportDir != "" {
		deps.Exporter = dataset.NewCSVExporter(cfg.Pipeline.ExportDir)
	}

	// Kafka producer
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		deps.Publisher = producer
	}

	service := pipeline.NewService(pipeline.Config{
		InferencePeriod: cfg.Pipeline.InferencePeriod,
		RunTimeout:      cfg.Pipeline.RunTimeout,
		Seed:            cfg.Pipeline.Seed,
	}, deps, log)

	// Kafka consumer for compile requests
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.ConsumerGroup, service, log)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Kafka consumer stopped")
			}
		}()
	}

	// Scheduled training runs stop with the server context
	if cfg.Pipeline.Schedule != "" {
		if err := sched.AddJob(cfg.Pipeline.Schedule, pipeline.NewTrainingJob(ctx, service)); err != nil {
			return fmt.Errorf("failed to register training job: %w", err)
		}
	}
	if sched.Entries() > 0 {
		sched.Start()
		defer sched.Stop()
	}

	// Initialize HTTP server
	handler := api.NewHandler(service, loader, runs, log)
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.SetupRoutes(handler, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	}
	return shutdown(srv, log)
}

func shutdown(srv *http.Server, log zerolog.Logger) error {
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
