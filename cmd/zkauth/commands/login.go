package commands

import (
	"errors"
	"fmt"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/client"
	"github.com/marmos91/zkauth/pkg/client/keystore"
	"github.com/spf13/cobra"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the server",
	Long: `Prove ownership of an account's private key to the server.

There is no password: authentication is a zero-knowledge proof over the key
generated at registration or pairing. The device this machine is enrolled as
is marked logged in on the server until 'zkauth logout'.

Examples:
  # Login with the current context's account
  zkauth login

  # Login as a specific account
  zkauth login --username alice

  # Login against a specific server
  zkauth login --server auth.example.com:65432 -u alice`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, profile, err := cmdutil.LoadStore()
	if err != nil {
		return err
	}

	username := loginUsername
	if username == "" && profile != nil {
		username = profile.Username
	}
	if username == "" {
		username, err = prompt.InputRequired("Username")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	key, err := keystore.Load(username)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return fmt.Errorf("no key for %q on this machine\n\n"+
				"Create an account:        zkauth register\n"+
				"Pair with an existing one: zkauth pair request", username)
		}
		return err
	}

	addr := cmdutil.ServerAddr(profile)
	c, err := cmdutil.Dial(cmd.Context(), addr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	fmt.Printf("Logging in to %s as %s...\n", addr, username)
	if err := c.Authenticate(cmd.Context(), username, key); err != nil {
		if errors.Is(err, client.ErrRejected) {
			return fmt.Errorf("authentication rejected: the stored key matches no enrolled device of %q", username)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	device := ""
	if profile != nil {
		device = profile.Device
	}
	if err := cmdutil.SaveLogin(store, addr, username, device); err != nil {
		return err
	}

	fmt.Printf("Logged in successfully as %s\n", username)
	fmt.Printf("Context: %s\n", store.GetCurrentContextName())

	return nil
}
