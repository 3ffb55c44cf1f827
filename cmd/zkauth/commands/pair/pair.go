// Package pair implements device pairing subcommands for zkauth.
package pair

import (
	"github.com/spf13/cobra"
)

// Cmd is the pair subcommand.
var Cmd = &cobra.Command{
	Use:   "pair",
	Short: "Enroll additional devices",
	Long: `Enroll additional devices into an existing account.

Pairing is a two-sided exchange: the new device runs 'pair request' and
receives a short-lived token, then a device already enrolled in the account
approves that token with 'pair approve'. The new device's key becomes valid
the moment the approval lands.

Subcommands:
  request  Ask to join an account from this device
  approve  Approve a pairing token from an enrolled device`,
}

func init() {
	Cmd.AddCommand(requestCmd)
	Cmd.AddCommand(approveCmd)
}
