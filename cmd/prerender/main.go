// Command prerender generates the home page and the first posts into the
// page store before the server takes traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacetraveling/internal/app"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/logger"
)

func main() {
	if err := run(); err != nil {
		logger.Log.Errorf("prerender failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)

	limit := flag.Int("limit", cfg.StaticPathLimit, "number of post pages to generate")
	purge := flag.Bool("purge", false, "drop every stored page before generating")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if *purge {
		if err := application.Pages.Purge(ctx); err != nil {
			return fmt.Errorf("purge pages: %w", err)
		}
	}

	routes, err := application.API.Prerender(ctx, *limit)
	if err != nil {
		return err
	}
	logger.InfoWithFields("prerender finished", logger.Fields{"routes": routes, "count": len(routes)})
	return nil
}
