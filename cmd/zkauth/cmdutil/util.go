// Package cmdutil provides shared utilities for zkauth commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/zkauth/internal/cli/credentials"
	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/client"
	"github.com/marmos91/zkauth/pkg/client/keystore"
)

// DefaultServer is the address dialed when neither the --server flag nor the
// current context names one.
const DefaultServer = "localhost:65432"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Server  string
	Output  string
	NoColor bool
}

// LoadStore opens the context store and returns the current context, which is
// nil when none is set.
func LoadStore() (*credentials.Store, *credentials.Context, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize context store: %w", err)
	}

	profile, err := store.GetCurrentContext()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCurrentContext) || errors.Is(err, credentials.ErrContextNotFound) {
			return store, nil, nil
		}
		return nil, nil, err
	}
	return store, profile, nil
}

// ServerAddr resolves the server address: the --server flag wins, then the
// context, then the built-in default.
func ServerAddr(profile *credentials.Context) string {
	if Flags.Server != "" {
		return Flags.Server
	}
	if profile != nil && profile.Server != "" {
		return profile.Server
	}
	return DefaultServer
}

// Dial connects to addr and completes the wire handshake.
func Dial(ctx context.Context, addr string) (*client.Client, error) {
	c, err := client.Dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("cannot reach %s: %w", addr, err)
	}
	return c, nil
}

// AuthenticatedClient dials the configured server and proves the stored key
// for an account. The account comes from flagUsername when set, otherwise
// from the current context. The caller owns the returned connection.
func AuthenticatedClient(ctx context.Context, flagUsername string) (*client.Client, string, error) {
	_, profile, err := LoadStore()
	if err != nil {
		return nil, "", err
	}

	username := flagUsername
	if username == "" && profile != nil {
		username = profile.Username
	}
	if username == "" {
		return nil, "", credentials.ErrNotLoggedIn
	}

	key, err := keystore.Load(username)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return nil, "", fmt.Errorf("no key for %q on this machine; enroll it with 'zkauth register' or 'zkauth pair request'", username)
		}
		return nil, "", err
	}

	c, err := Dial(ctx, ServerAddr(profile))
	if err != nil {
		return nil, "", err
	}
	if err := c.Authenticate(ctx, username, key); err != nil {
		_ = c.Close()
		if errors.Is(err, client.ErrRejected) {
			return nil, "", fmt.Errorf("authentication rejected for %q: the stored key matches no enrolled device", username)
		}
		return nil, "", err
	}
	return c, username, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data in the selected format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the
// tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.Success(os.Stdout, !Flags.NoColor, msg)
}

// SaveLogin records a successful authentication in the context store,
// creating the default context on first use.
func SaveLogin(store *credentials.Store, addr, username, device string) error {
	name := store.GetCurrentContextName()
	if name == "" {
		name = credentials.DefaultContextName
	}

	profile, err := store.GetContext(name)
	if err != nil {
		profile = &credentials.Context{}
	}
	profile.Server = addr

	if err := store.SetContext(name, profile); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	if err := store.UseContext(name); err != nil {
		return fmt.Errorf("failed to set current context: %w", err)
	}
	if err := store.MarkLoggedIn(username, device); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	return nil
}

// HandleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
