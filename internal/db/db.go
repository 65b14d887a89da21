package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "data/pages.db"

// Open connects to the sqlite page database and migrates its schema.
// An empty databasePath falls back to DefaultPath; ":memory:" and "file:"
// DSNs are passed through untouched.
func Open(databasePath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = DefaultPath
	}

	if !isMemoryDSN(path) {
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates the tables of every model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&GeneratedPage{})
}

func isMemoryDSN(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
