package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/marmos91/zkauth/internal/cli/prompt"
)

var (
	tokenOutput   string
	tokenPurgeAll bool
	tokenForce    bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage pending pairing tokens",
	Long: `Inspect and clean up pending pairing tokens directly in the store.

Pairing tokens are minted when a logged-in device requests to pair a new
one, and normally disappear when the pairing completes or the token expires.
These commands open the database directly; stop the server first.`,
}

var tokenListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pending pairing tokens",
	RunE:    runTokenList,
}

var tokenPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired pairing tokens",
	Long: `Delete expired pairing tokens from the store.

Use --all to delete every pending token, expired or not.`,
	RunE: runTokenPurge,
}

func init() {
	tokenListCmd.Flags().StringVarP(&tokenOutput, "output", "o", "table", "Output format (table|json|yaml)")
	tokenPurgeCmd.Flags().BoolVar(&tokenPurgeAll, "all", false, "Delete all tokens, not just expired ones")
	tokenPurgeCmd.Flags().BoolVar(&tokenForce, "force", false, "Skip confirmation prompt")

	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenPurgeCmd)
}

func runTokenList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(tokenOutput)
	if err != nil {
		return err
	}

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	tokens, err := st.ListTokens(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, tokens)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, tokens)
	}

	if len(tokens) == 0 {
		fmt.Println("No pending pairing tokens")
		return nil
	}

	now := time.Now()
	table := output.NewTableData("TOKEN", "DEVICE", "CREATED", "EXPIRES", "STATE")
	for _, t := range tokens {
		state := "pending"
		if t.Expired(now) {
			state = "expired"
		}
		table.AddRow(
			t.Token,
			t.DeviceName,
			t.CreatedAt.Format(time.TimeOnly),
			t.Expiry.Format(time.TimeOnly),
			state,
		)
	}
	return output.PrintTable(os.Stdout, table)
}

func runTokenPurge(cmd *cobra.Command, args []string) error {
	if tokenPurgeAll {
		ok, err := prompt.ConfirmWithForce("Delete ALL pending pairing tokens?", tokenForce)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}
	}

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	tokens, err := st.ListTokens(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	now := time.Now()
	purged := 0
	for _, t := range tokens {
		if !tokenPurgeAll && !t.Expired(now) {
			continue
		}
		if err := st.DeleteToken(cmd.Context(), t.Token); err != nil {
			return fmt.Errorf("failed to delete token %s: %w", t.Token, err)
		}
		purged++
	}

	fmt.Printf("Purged %d token(s), %d remaining\n", purged, len(tokens)-purged)
	return nil
}
