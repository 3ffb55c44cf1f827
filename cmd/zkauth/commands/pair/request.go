package pair

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/client/keystore"
	"github.com/marmos91/zkauth/pkg/schnorr"
	"github.com/spf13/cobra"
)

var requestDevice string

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Ask to join an account from this device",
	Long: `Ask the server to enroll this device into an existing account.

A fresh private key is generated here and its public key is sent with the
request. The server answers with a pairing token; once a device already
enrolled in the account approves the token, this command unblocks and stores
the key. Which account the token belongs to is only revealed on approval.

The token expires if not approved in time.

Examples:
  # Request pairing interactively
  zkauth pair request

  # Request pairing with a device name
  zkauth pair request --device tablet`,
	RunE: runPairRequest,
}

func init() {
	requestCmd.Flags().StringVarP(&requestDevice, "device", "d", "", "Name for this device (defaults to the hostname)")
}

func runPairRequest(cmd *cobra.Command, args []string) error {
	store, profile, err := cmdutil.LoadStore()
	if err != nil {
		return err
	}

	device := requestDevice
	if device == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "device"
		}
		device, err = prompt.Input("Device name", host)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	addr := cmdutil.ServerAddr(profile)
	c, err := cmdutil.Dial(cmd.Context(), addr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	key, err := schnorr.GenerateKey(c.Group())
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	token, err := c.RequestPairing(cmd.Context(), device, key)
	if err != nil {
		return fmt.Errorf("pairing request failed: %w", err)
	}

	fmt.Printf("Pairing token: %s\n\n", token)
	fmt.Println("On a device already enrolled in the account, run:")
	fmt.Printf("  zkauth pair approve %s\n\n", token)
	fmt.Println("Waiting for approval (Ctrl+C to abandon)...")

	// The wait ends when the owner approves, the token expires, or the user
	// gives up.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	username, err := c.AwaitPairing(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("Pairing abandoned.")
			return nil
		}
		return fmt.Errorf("pairing failed: %w", err)
	}

	if _, err := os.Stat(keystore.Path(username)); err == nil {
		fmt.Printf("note: replacing the existing key for %s\n", username)
	}
	if err := keystore.Save(username, key); err != nil {
		return fmt.Errorf("paired to %s, but storing the key failed: %w", username, err)
	}

	if err := cmdutil.SaveLogin(store, addr, username, device); err != nil {
		return err
	}

	fmt.Printf("Device %q is now enrolled in account %s.\n", device, username)
	fmt.Printf("  Key file: %s\n", keystore.Path(username))

	return nil
}
