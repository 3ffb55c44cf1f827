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
	userOutput string
	userForce  bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage enrolled accounts",
	Long: `Inspect and manage enrolled accounts directly in the store.

These commands open the database directly and must not run while the server
is up: the embedded Badger store takes an exclusive lock. Stop the server
first, or use the HTTP API for online administration.`,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List enrolled accounts",
	RunE:    runUserList,
}

var userShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show one account and its devices",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove"},
	Short:   "Delete an account and all its devices",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserDelete,
}

var userRemoveDeviceCmd = &cobra.Command{
	Use:   "remove-device <username> <device>",
	Short: "Remove a single device from an account",
	Long: `Remove a single enrolled device from an account.

The main device cannot be removed; delete the whole account instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runUserRemoveDevice,
}

func init() {
	userListCmd.Flags().StringVarP(&userOutput, "output", "o", "table", "Output format (table|json|yaml)")
	userShowCmd.Flags().StringVarP(&userOutput, "output", "o", "table", "Output format (table|json|yaml)")
	userDeleteCmd.Flags().BoolVar(&userForce, "force", false, "Skip confirmation prompt")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userRemoveDeviceCmd)
}

func runUserList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(userOutput)
	if err != nil {
		return err
	}

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	users, err := st.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, users)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, users)
	}

	if len(users) == 0 {
		fmt.Println("No accounts enrolled")
		return nil
	}

	table := output.NewTableData("USERNAME", "DEVICES", "MAIN DEVICE", "LOGGED IN", "CREATED")
	for _, u := range users {
		main := "-"
		if d := u.MainDevice(); d != nil {
			main = d.DeviceName
		}
		logged := 0
		for _, d := range u.Devices {
			if d.Logged {
				logged++
			}
		}
		table.AddRow(
			u.Username,
			fmt.Sprintf("%d", len(u.Devices)),
			main,
			fmt.Sprintf("%d", logged),
			u.CreatedAt.Format(time.DateOnly),
		)
	}
	return output.PrintTable(os.Stdout, table)
}

func runUserShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(userOutput)
	if err != nil {
		return err
	}

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	user, err := st.GetUser(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, user)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, user)
	}

	if err := output.SimpleTable(os.Stdout, [][2]string{
		{"Username", user.Username},
		{"Created", user.CreatedAt.Format(time.RFC3339)},
		{"Devices", fmt.Sprintf("%d", len(user.Devices))},
	}); err != nil {
		return err
	}

	fmt.Println()
	table := output.NewTableData("DEVICE", "MAIN", "LOGGED IN", "PUBLIC KEY")
	for _, d := range user.Devices {
		table.AddRow(d.DeviceName, yesNo(d.MainDevice), yesNo(d.Logged), truncateKey(d.PK))
	}
	return output.PrintTable(os.Stdout, table)
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete account %q and all its devices?", username), userForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.DeleteUser(cmd.Context(), username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Printf("Account %q deleted\n", username)
	return nil
}

func runUserRemoveDevice(cmd *cobra.Command, args []string) error {
	username, device := args[0], args[1]

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.RemoveDevice(cmd.Context(), username, device); err != nil {
		return fmt.Errorf("failed to remove device: %w", err)
	}

	fmt.Printf("Device %q removed from account %q\n", device, username)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncateKey shortens a hex public key for table display.
func truncateKey(pk string) string {
	const max = 18
	if len(pk) <= max {
		return pk
	}
	return pk[:max] + "..."
}
