package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig collects everything needed to run the server and the prerender job.
type AppConfig struct {
	ListenAddr string
	Port       string
	GinMode    string
	LogLevel   string

	ContentEndpoint    string
	ContentAccessToken string
	ContentTimeout     time.Duration
	ContentRetries     int

	HomePageSize    int
	StaticPathLimit int

	PageStore          string
	DatabasePath       string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RevalidateInterval time.Duration
	FallbackWait       time.Duration

	SessionSecret        string
	RevalidateSecretHash string
	CORSAllowedOrigins   []string

	SiteConfigPath string
	SiteBaseURL    string
	Site           SiteConfig
}

// Load reads the application configuration from the environment, falling
// back to defaults for anything missing. Site presentation settings are read
// from the YAML file named by SITE_CONFIG when it exists.
func Load() (AppConfig, error) {
	port := env("PORT", "3000")

	cfg := AppConfig{
		ListenAddr: env("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:       port,
		GinMode:    env("GIN_MODE", "release"),
		LogLevel:   env("LOG_LEVEL", "info"),

		ContentEndpoint:    strings.TrimRight(env("PRISMIC_API_ENDPOINT", ""), "/"),
		ContentAccessToken: env("PRISMIC_ACCESS_TOKEN", ""),
		ContentTimeout:     envDuration("CONTENT_TIMEOUT", 10*time.Second),
		ContentRetries:     envInt("CONTENT_RETRIES", 2),

		HomePageSize:    envInt("HOME_PAGE_SIZE", 10),
		StaticPathLimit: envInt("STATIC_PATH_LIMIT", 2),

		PageStore:          strings.ToLower(env("PAGE_STORE", "sqlite")),
		DatabasePath:       env("DATABASE_PATH", "data/pages.db"),
		RedisAddr:          env("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      env("REDIS_PASSWORD", ""),
		RedisDB:            envInt("REDIS_DB", 0),
		RevalidateInterval: envDuration("REVALIDATE_INTERVAL", 30*time.Minute),
		FallbackWait:       envDuration("FALLBACK_WAIT", 3*time.Second),

		SessionSecret:        env("SESSION_SECRET", ""),
		RevalidateSecretHash: env("REVALIDATE_SECRET_HASH", ""),
		CORSAllowedOrigins:   envList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		SiteConfigPath: env("SITE_CONFIG", "site.yaml"),
		SiteBaseURL:    strings.TrimRight(env("SITE_BASE_URL", "http://localhost:3000"), "/"),
	}

	if cfg.ContentEndpoint == "" {
		return AppConfig{}, fmt.Errorf("config: PRISMIC_API_ENDPOINT is required")
	}
	switch cfg.PageStore {
	case "sqlite", "redis":
	default:
		return AppConfig{}, fmt.Errorf("config: unsupported PAGE_STORE %q", cfg.PageStore)
	}

	site, err := LoadSite(cfg.SiteConfigPath)
	if err != nil {
		return AppConfig{}, err
	}
	cfg.Site = site

	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
