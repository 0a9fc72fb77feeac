// Package storage persists collection runs and their per-project snapshots.
// It wraps GORM so the same store works against SQLite, PostgreSQL and SQL
// Server, selected through the database configuration.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kuhlman-labs/sonar-collector/internal/config"
	"github.com/kuhlman-labs/sonar-collector/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database type identifiers accepted in configuration.
const (
	DBTypeSQLite     = "sqlite"
	DBTypePostgres   = "postgres"
	DBTypePostgreSQL = "postgresql"
	DBTypeSQLServer  = "sqlserver"
	DBTypeMSSQL      = "mssql"
)

type Database struct {
	db  *gorm.DB
	cfg config.DatabaseConfig
}

func NewDatabase(cfg config.DatabaseConfig) (*Database, error) {
	// Ensure data directory exists for SQLite
	if cfg.Type == DBTypeSQLite {
		dir := filepath.Dir(cfg.DSN)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dialer, err := NewDialectDialer(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialer.Dialect(), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := dialer.ConfigureConnection(db); err != nil {
		return nil, err
	}

	return &Database{
		db:  db,
		cfg: cfg,
	}, nil
}

// Migrate creates or updates the schema for all persisted models.
func (d *Database) Migrate() error {
	if err := d.db.AutoMigrate(
		&models.CollectionRun{},
		&models.MetricsSnapshot{},
		&models.ClassificationSnapshot{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (d *Database) DB() *gorm.DB {
	return d.db
}
