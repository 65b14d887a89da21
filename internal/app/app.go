// Package app wires configuration into the services shared by the server
// and the prerender command.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/db"
	"github.com/spacetraveling/internal/handler"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/pagecache"
	"github.com/spacetraveling/internal/prismic"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/view"
	gormlogger "gorm.io/gorm/logger"
)

// App holds the wired services.
type App struct {
	API   *handler.API
	Views *view.Renderer
	Pages *pagecache.Generator

	closers []func() error
}

// New builds every service described by cfg.
func New(ctx context.Context, cfg config.AppConfig) (*App, error) {
	client, err := prismic.New(prismic.Config{
		Endpoint:    cfg.ContentEndpoint,
		AccessToken: cfg.ContentAccessToken,
		Timeout:     cfg.ContentTimeout,
		Retries:     cfg.ContentRetries,
	})
	if err != nil {
		return nil, err
	}

	posts := service.NewPostService(client, service.PostOptions{
		PageSize:         cfg.HomePageSize,
		PreviousOrdering: cfg.Site.Navigation.PreviousOrdering,
		NextOrdering:     cfg.Site.Navigation.NextOrdering,
	})

	a := &App{}
	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pages = pagecache.NewGenerator(store, pagecache.Options{
		Revalidate:   cfg.RevalidateInterval,
		FallbackWait: cfg.FallbackWait,
	})

	a.Views, err = view.New(view.Options{Language: cfg.Site.Language, Location: cfg.Site.Location()})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.API = handler.NewAPI(posts, a.Pages, a.Views, cfg.Site, handler.Options{
		BaseURL:              cfg.SiteBaseURL,
		RevalidateSecretHash: cfg.RevalidateSecretHash,
	})
	return a, nil
}

// Close releases the page store connection.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) openStore(ctx context.Context, cfg config.AppConfig) (pagecache.Store, error) {
	switch cfg.PageStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)
		logger.InfoWithFields("page store ready", logger.Fields{"backend": "redis", "addr": cfg.RedisAddr})
		return pagecache.NewRedisStore(client, pagecache.DefaultKeyPrefix), nil
	default:
		gdb, err := db.Open(cfg.DatabasePath, gormLogLevel(cfg.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("open page database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		logger.InfoWithFields("page store ready", logger.Fields{"backend": "sqlite", "path": cfg.DatabasePath})
		return pagecache.NewSQLStore(gdb), nil
	}
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return gormlogger.Info
	case "error", "fatal":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
