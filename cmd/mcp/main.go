package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/code-context-engine/internal/adapters/mcp"
	"github.com/kirillkom/code-context-engine/internal/bootstrap"
	"github.com/kirillkom/code-context-engine/internal/config"
	"github.com/kirillkom/code-context-engine/internal/observability/logging"
)

const serviceName = "context-mcp"

// Logs go to stderr: stdout carries MCP frames.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLoggerTo(os.Stderr, serviceName, "error").Error("config_error", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.ContextUC, logger)
	if err := server.Serve(ctx, os.Stdin, os.Stdout, os.Stderr); err != nil && ctx.Err() == nil {
		logger.Error("mcp_server_error", "error", err)
		os.Exit(1)
	}
}
