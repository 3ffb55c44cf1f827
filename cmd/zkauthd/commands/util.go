package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/zkauth/internal/logger"
	"github.com/marmos91/zkauth/pkg/config"
	"github.com/marmos91/zkauth/pkg/store"
	"github.com/marmos91/zkauth/pkg/store/badger"
	"github.com/marmos91/zkauth/pkg/store/memory"
	"github.com/marmos91/zkauth/pkg/store/sqlstore"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// OpenStore opens the account store named by the database configuration.
// The caller owns the returned store and must Close it.
func OpenStore(cfg *store.Config) (store.Store, error) {
	switch cfg.Type {
	case store.DatabaseTypeBadger:
		return badger.New(cfg.Badger.Path)
	case store.DatabaseTypeSQLite, store.DatabaseTypePostgres:
		return sqlstore.New(cfg)
	case store.DatabaseTypeMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// openConfiguredStore loads configuration and opens the store it names.
// Used by the offline management commands (user, token, backup, restore),
// which touch the database directly instead of going through the server.
func openConfiguredStore() (store.Store, *config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, nil, err
	}
	st, err := OpenStore(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, cfg, nil
}

// GetDefaultStateDir returns the default state directory path.
func GetDefaultStateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "/tmp"
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "zkauth")
}

// GetDefaultPidFile returns the default PID file path.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "zkauthd.pid")
}

// GetDefaultLogFile returns the default log file path for daemon mode.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "zkauthd.log")
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
