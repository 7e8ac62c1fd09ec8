package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/matchday-relay/internal/app"
	"github.com/riskibarqy/matchday-relay/internal/config"
	"github.com/riskibarqy/matchday-relay/internal/observability"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
)

// worker consumes live match reports from AMQP and routes them per match.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("load config", "error", err)
		os.Exit(1)
	}

	base, shutdownLogs, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		logging.NewJSON(cfg.LogLevel).Error("init betterstack", "error", err)
		os.Exit(1)
	}
	logger := base.Named("worker")
	logging.SetDefault(logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownLogs(ctx)
	}()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	pprofServer := observability.StartPprofServer(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	router := container.NewShardRouter()
	consumer := container.NewConsumer(router)

	deliveries, err := consumer.Connect()
	if err != nil {
		logger.Error("connect amqp", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started", "queue", cfg.AMQPQueue, "shards", cfg.WorkerShards)
	if err := consumer.Run(ctx, deliveries); err != nil {
		logger.Error("consumer stopped", "error", err)
	}

	// Drain queued reports before closing the channel they ack on.
	router.Close()
	if err := consumer.Close(); err != nil {
		logger.Warn("close amqp", "error", err)
	}
	if err := container.Close(); err != nil {
		logger.Error("close backends", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := observability.StopPprofServer(pprofServer, logger, 5*time.Second); err != nil {
		logger.Warn("stop pprof", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("shutdown uptrace", "error", err)
	}
	logger.Info("worker stopped")
}
