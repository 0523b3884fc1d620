package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/rlaurindo/presenca-sync/internal/client/cli"
	"github.com/rlaurindo/presenca-sync/internal/client/config"
	"github.com/rlaurindo/presenca-sync/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
