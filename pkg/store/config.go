package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DatabaseType defines the supported persistence backends.
type DatabaseType string

const (
	// DatabaseTypeBadger uses an embedded Badger database (default).
	DatabaseTypeBadger DatabaseType = "badger"

	// DatabaseTypeSQLite uses SQLite through GORM (single node).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres uses PostgreSQL through GORM.
	DatabaseTypePostgres DatabaseType = "postgres"

	// DatabaseTypeMemory keeps everything in process memory. Nothing
	// survives a restart; meant for tests and local experiments.
	DatabaseTypeMemory DatabaseType = "memory"
)

// BadgerConfig contains Badger-specific configuration.
type BadgerConfig struct {
	// Path is the Badger data directory.
	// Default: $XDG_DATA_HOME/zkauth/db
	Path string
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: $XDG_DATA_HOME/zkauth/zkauth.db
	Path string
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string // disable, require, verify-ca, verify-full
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config contains database configuration.
type Config struct {
	Type     DatabaseType
	Badger   BadgerConfig
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeBadger
	}

	if c.Type == DatabaseTypeBadger && c.Badger.Path == "" {
		c.Badger.Path = filepath.Join(defaultDataDir(), "db")
	}

	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" {
		c.SQLite.Path = filepath.Join(defaultDataDir(), "zkauth.db")
	}

	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeBadger:
		if c.Badger.Path == "" {
			return fmt.Errorf("badger path is required")
		}
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	case DatabaseTypeMemory:
		// Nothing to validate.
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// defaultDataDir returns the state directory for embedded databases.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func defaultDataDir() string {
	if dataDir := os.Getenv("XDG_DATA_HOME"); dataDir != "" {
		return filepath.Join(dataDir, "zkauth")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "zkauth-data")
	}
	return filepath.Join(home, ".local", "share", "zkauth")
}
