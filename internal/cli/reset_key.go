package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetKeyCmd = &cobra.Command{
	Use:   "reset-key [job] [key]",
	Short: "Drop a key from a job's caches so the next run fetches it again",
	Long: `Drop a key from a job's caches so the next run fetches it again.
For courts the key is "debtor_inn|creditor_inn"; for bankrot an INN; for fssp an ip number.`,
	Args: cobra.ExactArgs(2),
	RunE: runResetKey,
}

func init() {
	rootCmd.AddCommand(resetKeyCmd)
}

func runResetKey(cmd *cobra.Command, args []string) error {
	job, key := args[0], args[1]

	app, _, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	removed, err := app.ResetKey(cmd.Context(), job, key)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries for %s key %s\n", removed, job, key)
	return nil
}
