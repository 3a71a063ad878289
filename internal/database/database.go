package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func isPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// NewDatabase opens the database named by url and migrates it to the latest
// schema. Urls with a postgres:// scheme use the postgres driver, anything else
// is treated as a sqlite file path.
func NewDatabase(url string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if isPostgres(url) {
		dialector = postgres.Open(url)
	} else {
		dialector = sqlite.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if dialector.Name() == "sqlite" {
		// Sqlite does not enforce foreign keys unless asked to.
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			slog.Error("error enabling foreign keys for SQLite", "error", err)
		}
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("unable to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxIdleTime(time.Minute)
	}

	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("unable to migrate database: %w", err)
	}

	slog.Info("database ready", "driver", dialector.Name())
	return db, nil
}
