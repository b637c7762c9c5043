// Command salespulse serves the sales REST API, the MCP endpoint and
// Prometheus metrics over HTTP.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"salespulse/internal/app"
)

func main() {
	configPath := flag.String("config", "", "config file (default is ./config.yaml or configs/config.yaml)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
