package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopTimeout time.Duration
	stopForce   bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the zkauth server",
	Long: `Stop a zkauth server started in background mode.

The server is sent SIGTERM and given time to drain active connections.
Use --force to follow up with SIGKILL if it does not exit in time.

Examples:
  # Stop the server
  zkauthd stop

  # Stop with a longer drain window
  zkauthd stop --timeout 60s

  # Stop, killing the process if it does not exit
  zkauthd stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/zkauth/zkauthd.pid)")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second, "How long to wait for the server to exit")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Send SIGKILL if the server does not exit in time")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("zkauthd is not running (no PID file)")
			return nil
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return fmt.Errorf("invalid PID file %s: %w", pidPath, err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	// Signal 0 probes for existence without affecting the process
	if err := process.Signal(syscall.Signal(0)); err != nil {
		fmt.Printf("zkauthd is not running (stale PID file for PID %d)\n", pid)
		_ = os.Remove(pidPath)
		return nil
	}

	fmt.Printf("Stopping zkauthd (PID %d)...\n", pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	if waitForExit(process, stopTimeout) {
		// The server removes its own PID file on clean shutdown; clear
		// any leftover just in case.
		_ = os.Remove(pidPath)
		fmt.Println("zkauthd stopped")
		return nil
	}

	if !stopForce {
		return fmt.Errorf("zkauthd did not exit within %s\nUse --force to send SIGKILL, or --timeout to wait longer", stopTimeout)
	}

	fmt.Println("Graceful shutdown timed out, sending SIGKILL")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}
	waitForExit(process, 5*time.Second)
	_ = os.Remove(pidPath)
	fmt.Println("zkauthd killed")
	return nil
}

// waitForExit polls the process until it exits or the timeout elapses.
func waitForExit(process *os.Process, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
