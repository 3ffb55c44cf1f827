package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/marmos91/zkauth/pkg/protocol/wire"
	"github.com/spf13/cobra"
)

var devicesUsername string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the account's enrolled devices",
	Long: `List every device enrolled in the account, with its login state.

The device this machine is enrolled as is marked with an asterisk (*).

Examples:
  # List devices as table
  zkauth devices

  # List as JSON
  zkauth devices -o json`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().StringVarP(&devicesUsername, "username", "u", "", "Account name (defaults to the current context)")
}

// DeviceList renders enrolled devices for table output.
type DeviceList struct {
	Devices []wire.DeviceSummary
	Current string
}

// Headers implements TableRenderer.
func (dl DeviceList) Headers() []string {
	return []string{"", "DEVICE", "MAIN", "LOGGED IN", "PUBLIC KEY"}
}

// Rows implements TableRenderer.
func (dl DeviceList) Rows() [][]string {
	rows := make([][]string, 0, len(dl.Devices))
	for _, d := range dl.Devices {
		current := ""
		if dl.Current != "" && d.DeviceName == dl.Current {
			current = "*"
		}
		rows = append(rows, []string{
			current,
			d.DeviceName,
			cmdutil.BoolToYesNo(d.MainDevice),
			cmdutil.BoolToYesNo(d.Logged),
			truncateKey(d.PK),
		})
	}
	return rows
}

// truncateKey shortens a hex public key for table display.
func truncateKey(pk string) string {
	if len(pk) > 18 {
		return pk[:18] + "..."
	}
	return pk
}

func runDevices(cmd *cobra.Command, args []string) error {
	_, profile, err := cmdutil.LoadStore()
	if err != nil {
		return err
	}

	c, username, err := cmdutil.AuthenticatedClient(cmd.Context(), devicesUsername)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	devices, err := c.Devices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	current := ""
	if profile != nil && profile.Username == username {
		current = profile.Device
	}

	list := DeviceList{Devices: devices, Current: current}
	return cmdutil.PrintOutput(os.Stdout, devices, len(devices) == 0, "No devices enrolled.", list)
}
