package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/zkauth/pkg/schnorr"
)

// validate is the shared validator instance. A single instance caches struct
// metadata, so reuse across calls is both safe and cheap.
var validate = validator.New()

// Validate checks the configuration for invalid values.
//
// Struct tags cover range and enum checks; cross-field rules that tags
// cannot express are checked explicitly afterwards. Validate never mutates
// the config (normalization happens in ApplyDefaults).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("config validation: %w", err)
		}
		return err
	}

	// Telemetry needs a collector endpoint once enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint is required when telemetry is enabled")
	}

	// The announced group must exist in the registry
	if _, err := schnorr.Lookup(cfg.Server.GroupID); err != nil {
		return fmt.Errorf("server group_id: %w", err)
	}

	// The store config knows its own backend-specific requirements
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	return nil
}
