package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/backup"
)

var (
	restoreInput string
	restoreMode  string
	restoreForce bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the account store from a backup",
	Long: `Restore accounts and pending pairing tokens from a snapshot.

The snapshot may be a local file or an s3://bucket/key URI. Existing
accounts are kept by default; use --mode replace to overwrite accounts
that also appear in the snapshot. Tokens that expired since the snapshot
was taken are dropped.

IMPORTANT: Stop the server before restoring; the restore opens the
database directly.

Examples:
  # Restore from a local file (keep existing accounts)
  zkauthd restore --input /var/backups/zkauth.json

  # Restore from S3, overwriting accounts present in the snapshot
  zkauthd restore --input s3://my-bucket/zkauth/snapshot.json --mode replace

  # Restore without the confirmation prompt
  zkauthd restore --input /var/backups/zkauth.json --force`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "Snapshot path or s3://bucket/key URI (required)")
	restoreCmd.Flags().StringVar(&restoreMode, "mode", "skip", "Conflict handling: skip keeps existing accounts, replace overwrites them")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Skip confirmation prompt")
	restoreCmd.Flags().StringVar(&backupS3Region, "s3-region", "", "S3 region (default: us-east-1)")
	restoreCmd.Flags().StringVar(&backupS3Endpoint, "s3-endpoint", "", "Custom S3 endpoint (for MinIO/localstack)")
	restoreCmd.Flags().StringVar(&backupS3AccessKey, "s3-access-key", "", "S3 access key (default: ambient AWS credentials)")
	restoreCmd.Flags().StringVar(&backupS3SecretKey, "s3-secret-key", "", "S3 secret key")
	_ = restoreCmd.MarkFlagRequired("input")
}

func runRestore(cmd *cobra.Command, args []string) error {
	var mode backup.Mode
	switch restoreMode {
	case "skip":
		mode = backup.ModeSkip
	case "replace":
		mode = backup.ModeReplace
	default:
		return fmt.Errorf("invalid --mode %q (valid: skip, replace)", restoreMode)
	}

	var ok bool
	var err error
	if mode == backup.ModeReplace && !restoreForce {
		ok, err = prompt.ConfirmDanger(
			fmt.Sprintf("Restore %s, overwriting accounts that appear in the snapshot", restoreInput),
			"replace")
	} else {
		ok, err = prompt.ConfirmWithForce(
			fmt.Sprintf("Restore %s into the configured store?", restoreInput), restoreForce)
	}
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	snap, err := backup.Load(cmd.Context(), restoreInput, s3Options())
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	st, _, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	start := time.Now()
	result, err := backup.Restore(cmd.Context(), st, snap, mode)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println("Restore completed successfully")
	fmt.Printf("  Source:   %s\n", restoreInput)
	fmt.Printf("  Accounts: %d restored, %d skipped\n", result.UsersRestored, result.UsersSkipped)
	fmt.Printf("  Tokens:   %d restored, %d skipped, %d expired\n", result.TokensRestored, result.TokensSkipped, result.TokensExpired)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}
