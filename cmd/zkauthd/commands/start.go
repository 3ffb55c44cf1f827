package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/zkauth/internal/logger"
	"github.com/marmos91/zkauth/internal/telemetry"
	"github.com/marmos91/zkauth/pkg/api"
	"github.com/marmos91/zkauth/pkg/api/auth"
	"github.com/marmos91/zkauth/pkg/config"
	"github.com/marmos91/zkauth/pkg/metrics"
	"github.com/marmos91/zkauth/pkg/pairing"
	"github.com/marmos91/zkauth/pkg/protocol"
	"github.com/marmos91/zkauth/pkg/schnorr"
	"github.com/marmos91/zkauth/pkg/server"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the zkauth server",
	Long: `Start the zkauth server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/zkauth/config.yaml.

Examples:
  # Start in background (default)
  zkauthd start

  # Start in foreground
  zkauthd start --foreground

  # Start with custom config file
  zkauthd start --config /etc/zkauth/config.yaml

  # Start with environment variable overrides
  ZKAUTH_LOGGING_LEVEL=DEBUG zkauthd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/zkauth/zkauthd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/zkauth/zkauthd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "zkauthd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "zkauthd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("zkauth - Passwordless authentication server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics before anything that records them
	var (
		protocolMetrics *protocol.Metrics
		metricsServer   *metrics.Server
	)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		protocolMetrics = protocol.NewMetrics(metrics.GetRegistry())
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Open the account store
	st, err := OpenStore(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()
	logger.Info("Store initialized", "type", cfg.Database.Type)

	// Resolve the announced Schnorr group
	group, err := schnorr.Lookup(cfg.Server.GroupID)
	if err != nil {
		return fmt.Errorf("invalid group %q: %w", cfg.Server.GroupID, err)
	}
	logger.Info("Group configured", "group_id", group.ID, "bits", group.P.BitLen())

	// Live connection registry, shared by the protocol handler and the API
	sessions := server.NewSessionRegistry()

	handlerOpts := []protocol.Option{
		protocol.WithGroup(group),
		protocol.WithTokenTTL(cfg.Server.TokenTTL),
		protocol.WithTracker(sessions),
	}
	if protocolMetrics != nil {
		handlerOpts = append(handlerOpts, protocol.WithMetrics(protocolMetrics))
	}
	handler := protocol.NewHandler(st, pairing.NewRegistry(), handlerOpts...)

	srv := server.New(server.Config{
		BindAddress:      cfg.Server.Host,
		Port:             cfg.Server.Port,
		MaxConnections:   cfg.Server.MaxConnections,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		StatsLogInterval: cfg.Server.StatsLogInterval,
	}, handler)

	// Create API server if enabled
	var apiServer *api.Server
	if cfg.API.IsEnabled() {
		deps := api.Deps{
			Store:    st,
			Sessions: sessions,
			GroupID:  group.ID,
			Version:  Version,
			Credential: auth.Credential{
				Username:     cfg.Admin.Username,
				PasswordHash: cfg.Admin.PasswordHash,
			},
		}
		if cfg.API.HasJWTSecret() {
			tokens, err := auth.NewTokenService(auth.Config{
				Secret:               cfg.API.GetJWTSecret(),
				AccessTokenDuration:  cfg.API.JWT.AccessTokenDuration,
				RefreshTokenDuration: cfg.API.JWT.RefreshTokenDuration,
			})
			if err != nil {
				return fmt.Errorf("failed to create token service: %w", err)
			}
			deps.Tokens = tokens
		} else {
			logger.Warn("API admin routes disabled", "reason", "no JWT secret configured",
				"hint", "run 'zkauthd init' or set "+api.EnvJWTSecret)
		}
		if !deps.Credential.Configured() {
			logger.Warn("Admin credential not configured; admin login will fail",
				"hint", "run 'zkauthd init' to set one")
		}
		apiServer = api.NewServer(cfg.API, deps)
		logger.Info("API server configured", "port", cfg.API.Port)
	} else {
		logger.Info("API server disabled")
	}

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Start all servers; the first failure tears the rest down
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if apiServer != nil {
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	}
	if metricsServer != nil {
		g.Go(func() error {
			return metricsServer.Start(gctx)
		})
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- g.Wait()
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.",
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for servers to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()

	// Create state directory if it doesn't exist
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Set default PID file if not specified
	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check if already running
	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				// Check if process is still running
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("zkauthd is already running (PID %d)\nUse 'zkauthd stop' to stop the running instance", pid)
					}
				}
			}
		}
		// Stale PID file, remove it
		_ = os.Remove(pidPath)
	}

	// Set default log file if not specified
	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	// Get the executable path
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Build arguments for the daemon process
	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	// Create the daemon process
	cmd := exec.Command(executable, daemonArgs...)

	// Open log file for stdout/stderr
	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	// Start the daemon
	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("zkauthd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'zkauthd stop' to stop the server")
	fmt.Println("Use 'zkauthd status' to check server status")

	return nil
}
