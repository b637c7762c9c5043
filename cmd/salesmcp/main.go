// Command salesmcp runs the sales MCP tool server over stdio. Frames are
// line-delimited JSON-RPC on stdin and stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"salespulse/internal/app"
	"salespulse/internal/config"
	"salespulse/internal/infrastructure"
	"salespulse/internal/mcp"
)

func main() {
	configPath := flag.String("config", "", "config file (default is ./config.yaml or configs/config.yaml)")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "salesmcp: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout is reserved for protocol frames.
	logger, closer, err := infrastructure.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := app.BuildServices(cfg, logger, nil)
	if cfg.Dataset.LoadOnStart {
		if _, err := container.Store.Get(ctx); err != nil {
			logger.WarnContext(ctx, "dataset preload failed", slog.String("error", err.Error()))
		}
	}

	server := mcp.NewServer(container.Sales, logger)
	logger.InfoContext(ctx, "sales tools configured",
		slog.String("dataset", cfg.Dataset.Path),
		slog.Bool("insights_enabled", cfg.Insights.Enabled()))

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
