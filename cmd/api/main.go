package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/vadim/postpilot/internal/app"
	"github.com/vadim/postpilot/internal/config"
)

func main() {
	cfg := config.MustLoad()

	ctx := context.Background()

	// NewApp installs the configured logger as the slog default
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Blocks until SIGINT/SIGTERM, then drains the publisher and HTTP server
	if err := application.Run(ctx); err != nil {
		slog.Error("application stopped with error", "error", err)
		os.Exit(1)
	}
}
