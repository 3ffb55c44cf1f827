package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented sample configuration written by
// 'zkauthd init'. Kept as a literal template instead of yaml.Marshal output
// so the generated file carries explanatory comments.
const configTemplate = `# zkauth Configuration File
#
# Generated by 'zkauthd init'.
# Environment variables with the ZKAUTH_ prefix override these values,
# e.g. ZKAUTH_LOGGING_LEVEL=DEBUG.

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: "INFO"
  # Output format: text or json
  format: "text"
  # Where logs are written: stdout, stderr, or a file path
  output: "stdout"

server:
  # Address the wire protocol listener binds to.
  # Use 0.0.0.0 to accept connections from other hosts.
  host: "127.0.0.1"
  # TCP port for the wire protocol
  port: 65432
  # Schnorr group announced to clients during the handshake
  group_id: "modp-1536"
  # Maximum concurrent client connections (0 = unlimited)
  max_connections: 0
  # How long to wait for active connections to drain on shutdown
  shutdown_timeout: "30s"
  # How long a pairing token stays redeemable
  token_ttl: "10m"

database:
  # Backend: badger (embedded, default), sqlite, postgres, or memory.
  # Paths default under $XDG_DATA_HOME/zkauth.
  type: "badger"

api:
  # HTTP API with health probes, status, and admin endpoints
  enabled: true
  port: 8440
  jwt:
    # HMAC signing secret for admin bearer tokens (minimum 32 characters).
    # The ZKAUTH_API_SECRET environment variable takes precedence.
    secret: "%s"

admin:
  # Credential for the HTTP admin API login
  username: "admin"
%s
metrics:
  # Prometheus /metrics endpoint on its own port (default 9090)
  enabled: false

telemetry:
  # OpenTelemetry tracing (OTLP gRPC collector)
  enabled: false
  endpoint: "localhost:4317"
`

// InitConfig creates a sample configuration file at the default location.
//
// A fresh random JWT secret is generated for the admin API. Returns the path
// the file was written to.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath creates a sample configuration file at the given path.
// The admin credential is left without a password; the HTTP login stays
// disabled until one is set.
func InitConfigToPath(path string, force bool) error {
	return initConfigFile(path, force, "")
}

// InitConfigWithAdminHash creates a sample configuration file whose admin
// credential is pre-seeded with the given bcrypt password hash.
func InitConfigWithAdminHash(path string, force bool, passwordHash string) error {
	return initConfigFile(path, force, passwordHash)
}

func initConfigFile(path string, force bool, passwordHash string) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	secret, err := generateJWTSecret()
	if err != nil {
		return err
	}

	adminHash := "  # password_hash is set when you choose an admin password during init\n"
	if passwordHash != "" {
		adminHash = fmt.Sprintf("  # bcrypt hash of the admin password (never the plaintext)\n  password_hash: %q\n", passwordHash)
	}

	content := fmt.Sprintf(configTemplate, secret, adminHash)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the file holds the JWT secret and admin hash
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateJWTSecret returns a hex-encoded 32-byte random secret.
func generateJWTSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
