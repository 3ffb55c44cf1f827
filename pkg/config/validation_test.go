package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format, got nil")
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port > 65535, got nil")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_NegativeServerPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative port, got nil")
	}
}

func TestValidate_UnknownGroup(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.GroupID = "modp-9999"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown group, got nil")
	}
	if !strings.Contains(err.Error(), "group") {
		t.Errorf("Expected group error, got: %v", err)
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error when telemetry enabled without endpoint, got nil")
	}
	if !strings.Contains(err.Error(), "telemetry") || !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("Expected telemetry endpoint error, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.SampleRate = 1.5

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for sample rate > 1, got nil")
	}
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.JWT.Secret = "short"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for short JWT secret, got nil")
	}
	if !strings.Contains(err.Error(), "min") {
		t.Errorf("Expected 'min' validation error, got: %v", err)
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	// Both cases are accepted; normalization happens in ApplyDefaults,
	// never inside Validate.
	for _, level := range []string{"DEBUG", "debug", "INFO", "info", "WARN", "warn", "ERROR", "error"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Expected level %q to pass validation, got: %v", level, err)
		}
		if cfg.Logging.Level != level {
			t.Errorf("Validate must not mutate config: level %q became %q", level, cfg.Logging.Level)
		}
	}
}
