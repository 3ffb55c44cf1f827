package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/pkg/config"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail server logs",
	Long: `Display and optionally follow the zkauth server logs.

This command reads the log file named in the configuration. When the server
logs to stdout/stderr and was started in background mode, the daemon log
file under $XDG_STATE_HOME/zkauth is read instead.

Examples:
  # Show last 100 lines (default)
  zkauthd logs

  # Show last 50 lines
  zkauthd logs -n 50

  # Follow logs in real-time
  zkauthd logs -f

  # Show logs since a specific time
  zkauthd logs --since "2026-01-15T10:00:00Z"

  # Combine options
  zkauthd logs -f -n 20`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	// Load configuration to find the log file
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logPath, err := resolveLogFile(cfg)
	if err != nil {
		return err
	}

	// Parse --since time if provided
	var sinceTime time.Time
	if logsSince != "" {
		sinceTime, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	if logsFollow {
		return followLogs(logPath, logsLines, sinceTime)
	}

	return showLogs(logPath, logsLines, sinceTime)
}

// resolveLogFile picks the file to read: the configured log file when
// logging goes to a file, otherwise the daemon log that background mode
// redirects stdout/stderr into.
func resolveLogFile(cfg *config.Config) (string, error) {
	logOutput := cfg.Logging.Output

	if logOutput != "stdout" && logOutput != "stderr" {
		if _, err := os.Stat(logOutput); os.IsNotExist(err) {
			return "", fmt.Errorf("log file not found: %s\nThe server may not have started yet or is logging elsewhere", logOutput)
		}
		return logOutput, nil
	}

	daemonLog := GetDefaultLogFile()
	if _, err := os.Stat(daemonLog); err == nil {
		return daemonLog, nil
	}

	return "", fmt.Errorf("server is configured to log to %s and no daemon log exists at %s\nConfigure 'logging.output' to a file path, or start the server in background mode", logOutput, daemonLog)
}

// showLogs displays the last N lines from the log file.
func showLogs(logFile string, lines int, since time.Time) error {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var allLines []string
	scanner := bufio.NewScanner(file)
	// Increase buffer size for long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if lineTime := extractTimestamp(line); !lineTime.IsZero() && lineTime.Before(since) {
				continue
			}
		}
		allLines = append(allLines, line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	// Show last N lines
	start := 0
	if len(allLines) > lines {
		start = len(allLines) - lines
	}

	for _, line := range allLines[start:] {
		fmt.Println(line)
	}

	return nil
}

// followLogs tails the log file and follows new entries.
func followLogs(logFile string, initialLines int, since time.Time) error {
	// Show initial lines first
	if err := showLogs(logFile, initialLines, since); err != nil {
		return err
	}

	// Set up file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	// Open file for reading new content
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Seek to end
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}

	reader := bufio.NewReader(file)

	// Set up signal handling for graceful exit
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", logFile)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Write == fsnotify.Write {
				// Read and print new lines
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						break
					}
					fmt.Print(line)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// extractTimestamp attempts to pull a timestamp out of a log line.
// Handles RFC3339 at the start of the line (text format) and a JSON
// "time" field (json format).
func extractTimestamp(line string) time.Time {
	// RFC3339 prefix, with or without sub-second precision
	for _, n := range []int{20, 25, 30, 35} {
		if len(line) >= n {
			if t, err := time.Parse(time.RFC3339, line[:n]); err == nil {
				return t
			}
		}
	}

	// JSON "time" field
	const timeKey = `"time":"`
	if _, rest, ok := strings.Cut(line, timeKey); ok {
		if value, _, ok := strings.Cut(rest, `"`); ok {
			if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}
