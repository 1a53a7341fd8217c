package database

import (
	"fmt"
	"time"

	"github.com/AzielCF/az-social/core/config"
	"github.com/AzielCF/az-social/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GlobalDB holds the singleton database connection
var GlobalDB *gorm.DB

// NewDatabase opens the connection described by cfg.Database and stores it in GlobalDB.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg.Database, cfg.App.Debug)
	if err == nil {
		GlobalDB = db
	}
	return db, err
}

// Open connects to SQLite (default) or Postgres.
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
		)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		if err := utils.CreateParentFolder(cfg.Name); err != nil {
			return nil, err
		}
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", cfg.Name)
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (%s): %w", cfg.Name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	// SQLite serializes writers anyway
	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Close releases GlobalDB if it was opened.
func Close() error {
	if GlobalDB == nil {
		return nil
	}
	sqlDB, err := GlobalDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
