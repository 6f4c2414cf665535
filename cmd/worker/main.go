// Command worker runs the asynchronous transform pool: it consumes blob
// references from the queue, transforms OTLP payloads and batch-inserts the
// result into the columnar store.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"traceroot/internal/config"
	obsServices "traceroot/internal/core/services/observability"
	"traceroot/internal/infrastructure/database"
	"traceroot/internal/infrastructure/queue"
	chRepo "traceroot/internal/infrastructure/repository/clickhouse"
	"traceroot/internal/infrastructure/storage"
	"traceroot/internal/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ch, err := database.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to clickhouse")
	}
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to redis")
	}
	blobStore, err := storage.NewS3Store(ctx, cfg.S3, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build object store client")
	}

	taskQueue := queue.NewRedisStreamQueue(rdb, cfg.Queue, logger)
	processor, err := worker.NewProcessor(
		blobStore,
		obsServices.NewTransformer(logger),
		chRepo.NewTraceRepository(ch),
		chRepo.NewSpanRepository(ch),
		logger,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build processor")
	}

	pool := worker.New(taskQueue, processor, cfg.Queue, cfg.Worker.Concurrency, logger)
	logger.WithField("concurrency", cfg.Worker.Concurrency).Info("Worker starting")
	if err := pool.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Worker exited with error")
	}
	logger.Info("Worker stopped")
}
