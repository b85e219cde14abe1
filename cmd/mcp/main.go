package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/fleet-claims/internal/adapters/mcp"
	"github.com/kirillkom/fleet-claims/internal/bootstrap"
	"github.com/kirillkom/fleet-claims/internal/config"
	"github.com/kirillkom/fleet-claims/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries the protocol.
	logger := logging.New(os.Stderr, "claims-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.RoleMCP, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.New(mcpadapter.Services{
		Intake:   app.Intake,
		Claims:   app.Query,
		Editor:   app.Editor,
		Pipeline: app.Pipeline,
	}, logger, version)

	stdio := mcpserver.NewStdioServer(server.MCPServer())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		slog.Error("mcp_stdio_failed", "error", err)
	}
}
