package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/marmos91/zkauth/internal/cli/timeutil"
	"github.com/marmos91/zkauth/pkg/apiclient"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the zkauth server.

This command checks the server health by calling the health endpoint
and displays status, uptime, account counts and live session counts.

Examples:
  # Check status (uses default settings)
  zkauthd status

  # Check status with custom API port
  zkauthd status --api-port 9440

  # Output as JSON
  zkauthd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/zkauth/zkauthd.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8440, "API server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running               bool   `json:"running" yaml:"running"`
	PID                   int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message               string `json:"message" yaml:"message"`
	Healthy               bool   `json:"healthy" yaml:"healthy"`
	Version               string `json:"version,omitempty" yaml:"version,omitempty"`
	Uptime                string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	GroupID               string `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	Users                 int    `json:"users" yaml:"users"`
	PendingTokens         int    `json:"pending_tokens" yaml:"pending_tokens"`
	ActiveConnections     int    `json:"active_connections" yaml:"active_connections"`
	AuthenticatedSessions int    `json:"authenticated_sessions" yaml:"authenticated_sessions"`
}

// apiBaseURL returns the local admin API endpoint for the given port.
func apiBaseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{
		Running: false,
		Healthy: false,
		Message: "Server is not running",
	}

	// Use default PID file if not specified
	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check PID file first
	pidData, err := os.ReadFile(pidPath)
	if err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
		if err == nil {
			// On Unix, FindProcess always succeeds; send signal 0 to check
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	// Check health endpoint (works for both daemon and foreground mode)
	api := apiclient.New(apiBaseURL(statusAPIPort))

	health, err := api.Health()
	if err == nil {
		status.Running = true
		status.Healthy = health.Healthy
		if status.Healthy {
			status.Message = "Server is running and healthy"
		} else {
			status.Message = fmt.Sprintf("Server is running but unhealthy: %s", health.Message)
		}

		fillStatusDetails(api, &status)
	} else if status.Running {
		// PID file says running but health check failed
		status.Message = "Server process exists but health check failed"
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

// fillStatusDetails enriches the status with uptime and counts from the
// status endpoint. Failures leave the fields zero; the health probe already
// answered, so a partial view is still useful.
func fillStatusDetails(api *apiclient.Client, status *ServerStatus) {
	details, err := api.Status()
	if err != nil {
		return
	}

	status.Version = details.Version
	status.Uptime = details.Uptime
	status.GroupID = details.GroupID
	status.Users = details.Users
	status.PendingTokens = details.PendingTokens
	status.ActiveConnections = details.ActiveConnections
	status.AuthenticatedSessions = details.AuthenticatedSessions
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("zkauth Server Status")
	fmt.Println("====================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:       \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:       \033[33m● Running (unhealthy)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:          %d\n", status.PID)
		}
		if status.Version != "" {
			fmt.Printf("  Version:      %s\n", status.Version)
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:       %s\n", timeutil.FormatUptime(status.Uptime))
		}
		if status.GroupID != "" {
			fmt.Printf("  Group:        %s\n", status.GroupID)
		}
		fmt.Printf("  Accounts:     %d\n", status.Users)
		fmt.Printf("  Connections:  %d (%d authenticated)\n", status.ActiveConnections, status.AuthenticatedSessions)
		if status.PendingTokens > 0 {
			fmt.Printf("  Pending pairings: %d\n", status.PendingTokens)
		}
	} else {
		fmt.Printf("  Status:       \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
