// Package store persists reconciliation flags and run statistics and reads
// the internal transaction ledger, all through gorm.
package store

import (
	"fmt"
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" //postgres
	_ "github.com/jinzhu/gorm/dialects/sqlite"   //sqlite3

	"golang-bank-recon-service/pkg/errors"
)

// Supported gorm dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// DatabaseConfig describes how to reach the reconciliation database.
type DatabaseConfig struct {
	Dialect      string `mapstructure:"dialect"`
	DSN          string `mapstructure:"dsn"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// DefaultDatabaseConfig returns the production defaults without a DSN.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Dialect:      DialectPostgres,
		MaxOpenConns: 10,
	}
}

// Validate checks the dialect and DSN.
func (c *DatabaseConfig) Validate() error {
	switch c.Dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return errors.ConfigurationError("database.dialect", c.Dialect,
			fmt.Errorf("supported dialects: %s, %s", DialectPostgres, DialectSQLite))
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.ConfigurationError("database.dsn", c.DSN, fmt.Errorf("dsn cannot be empty")).
			WithSuggestion("Set --db-dsn or RECONCILER_DATABASE_DSN")
	}
	if c.MaxOpenConns < 0 {
		return errors.ConfigurationError("database.max_open_conns", c.MaxOpenConns, nil)
	}
	return nil
}

// Open connects to the database and, when configured, migrates the schema.
func Open(cfg *DatabaseConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = DefaultDatabaseConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, errors.SourceFailure("connect to database", err).
			WithContext("dialect", cfg.Dialect)
	}

	if cfg.MaxOpenConns > 0 {
		db.DB().SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates or updates the recon, recon_log and transactions tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ReconciliationEntry{}, &ReconLog{}, &Transaction{}).Error; err != nil {
		return errors.PersistenceFailure("migrate schema", err)
	}
	return nil
}
