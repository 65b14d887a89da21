package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env.local and .env when present. Variables already set in
// the process environment are never overwritten, and .env.local wins over .env.
// It returns the files that were loaded.
func LoadDotEnv() []string {
	candidates := []string{".env.local", ".env"}
	var loaded []string
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}
