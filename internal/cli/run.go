package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/utof/debtds/internal/collect/bankrot"
	"github.com/utof/debtds/internal/collect/batch"
	"github.com/utof/debtds/internal/collect/courts"
	"github.com/utof/debtds/internal/collect/fssp"
	"github.com/utof/debtds/internal/core/quota"
)

var jobDescriptions = []struct {
	name  string
	short string
}{
	{courts.JobName, "Find court decisions for debtor/creditor pairs"},
	{bankrot.JobName, "Look up the bankruptcy status of INN columns"},
	{fssp.JobName, "Look up enforcement proceedings by ip number"},
}

func init() {
	for _, j := range jobDescriptions {
		rootCmd.AddCommand(newJobCmd(j.name, j.short))
	}
}

func newJobCmd(name, short string) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultOutput(input)
			}
			return runJob(cmd, name, input, output)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input CSV file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV file (default <input>.out.csv)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// defaultOutput names the output next to the input so a run never
// overwrites its source table.
func defaultOutput(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".out.csv"
}

func runJob(cmd *cobra.Command, name, input, output string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, _, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}()

	var observer batch.Observer
	if showProgress {
		observer = newProgressObserver(os.Stderr)
	}

	stats, err := app.Run(ctx, name, input, output, observer)
	if err != nil {
		slog.Error("Job failed", "job", name, "error", err)
		return err
	}

	printStats(cmd, name, output, stats)
	if stats.Halted {
		switch reason := stats.HaltReason; {
		case errors.Is(reason, quota.ErrLowBalance):
			slog.Warn("Stopped on low API balance, top up and run again", "threshold", app.Guard().Threshold())
		case errors.Is(reason, quota.ErrBudgetExhausted):
			slog.Warn("Stopped on the call budget, run again to continue")
		case errors.Is(reason, context.Canceled):
			slog.Warn("Interrupted, run again to resume")
		}
	}
	return nil
}

func printStats(cmd *cobra.Command, name, output string, s batch.Stats) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %d rows, %d unique keys, %d pending\n", name, s.Rows, s.UniqueKeys, s.Pending)
	_, _ = fmt.Fprintf(out, "resolved %d, partial %d, deferred %d in %s\n", s.Resolved, s.Partial, s.Deferred, s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "output written to %s\n", output)
}
