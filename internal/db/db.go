package db

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the database selected by DATABASE_URL. A postgres:// URL
// uses the postgres driver, a sqlite:// URL the pure-Go sqlite driver.
// With no URL set it falls back to a local sqlite file.
func Init() (*gorm.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		dbURL = "sqlite://scribe.db"
		log.Println("DATABASE_URL not set, defaulting to 'sqlite://scribe.db'")
	}

	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dbURL, "postgres://"):
		dialector = postgres.Open(dbURL)
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL %q: must start with postgres:// or sqlite://", dbURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Surface uniqueness violations as gorm.ErrDuplicatedKey so
		// handlers can map them to a conflict response.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Database connection established.")
	return db, nil
}
