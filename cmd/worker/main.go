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

	"github.com/kirillkom/code-context-engine/internal/bootstrap"
	"github.com/kirillkom/code-context-engine/internal/config"
	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/observability/logging"
	"github.com/kirillkom/code-context-engine/internal/observability/metrics"
)

const serviceName = "context-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	if app.Queue == nil {
		logger.Error("worker_requires_nats", "hint", "set NATS_URL and POSTGRES_DSN")
		os.Exit(1)
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribePacketAssembled(ctx, func(handlerCtx context.Context, packet *domain.ContextPacket) error {
		workerMetrics.ObserveQueueLag(serviceName, time.Since(packet.CreatedAt))
		workerMetrics.StartArchive()
		started := time.Now()

		archiveCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		err := app.ArchiveUC.ArchivePacket(archiveCtx, packet)
		workerMetrics.FinishArchive(serviceName, time.Since(started), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_error", "error", err)
		os.Exit(1)
	}
}
