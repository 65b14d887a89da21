package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/app"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/router"
)

func main() {
	loaded := config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	if len(loaded) > 0 {
		logger.InfoWithFields("loaded env files", logger.Fields{"files": loaded})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// wire services
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Errorf("failed to initialize application: %v", err)
		os.Exit(1)
	}
	defer application.Close()

	r := router.SetupRouter(application.API, application.Views, router.Config{
		SessionSecret:      cfg.SessionSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoWithFields("server listening", logger.Fields{"addr": cfg.ListenAddr, "content": cfg.ContentEndpoint})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("failed to run server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("server shutdown failed: %v", err)
	}
	logger.Log.Info("server stopped")
}
