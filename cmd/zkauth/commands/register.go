package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/client/keystore"
	"github.com/marmos91/zkauth/pkg/schnorr"
	"github.com/spf13/cobra"
)

var (
	registerUsername string
	registerDevice   string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Create a new account on the server, with this machine as its main device.

A fresh private key is generated and stored under the user config directory.
The server only receives the public key; there is no password. The main
device is the one that approves pairing requests from additional devices.

Examples:
  # Register interactively
  zkauth register

  # Register with flags
  zkauth register --username alice --device laptop

  # Register against a specific server
  zkauth register --server auth.example.com:65432 -u alice`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Account name")
	registerCmd.Flags().StringVarP(&registerDevice, "device", "d", "", "Name for this device (defaults to the hostname)")
}

// validateUsername rejects names that cannot become key file names.
func validateUsername(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("username is required")
	}
	if strings.ContainsAny(s, `/\ `) {
		return errors.New("username cannot contain spaces or path separators")
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	store, profile, err := cmdutil.LoadStore()
	if err != nil {
		return err
	}

	username := registerUsername
	if username == "" {
		username, err = prompt.InputWithValidation("Username", validateUsername)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	// Refuse to clobber an existing key for the same account.
	if _, err := keystore.Load(username); err == nil {
		return fmt.Errorf("a key for %q already exists at %s; use 'zkauth login' instead",
			username, keystore.Path(username))
	} else if !errors.Is(err, keystore.ErrKeyNotFound) {
		return err
	}

	device := registerDevice
	if device == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "main"
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

	// The key is generated against the group the server selected during the
	// handshake.
	key, err := schnorr.GenerateKey(c.Group())
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	if err := c.Register(cmd.Context(), username, device, key); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if err := keystore.Save(username, key); err != nil {
		return fmt.Errorf("registered on the server, but storing the key failed: %w", err)
	}

	if err := cmdutil.SaveLogin(store, addr, username, device); err != nil {
		return err
	}

	fmt.Printf("Account %s registered.\n", username)
	fmt.Printf("  Device:   %s (main device)\n", device)
	fmt.Printf("  Key file: %s\n", keystore.Path(username))
	fmt.Printf("  Server:   %s\n", addr)
	fmt.Println()
	fmt.Println("Keep the key file safe: it is the only way to access this account")
	fmt.Println("from this machine.")

	return nil
}
