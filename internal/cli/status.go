package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache sizes, partial searches and pending failures of every job",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, cfg, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	statuses, err := app.Status(cmd.Context())
	if err != nil {
		return err
	}

	t := newTable()
	t.SetTitle(fmt.Sprintf("storage: %s", cfg.Storage.Backend))
	t.AppendHeader(table.Row{"Job", "Results", "Responses", "Case details", "Partial searches", "Pending failures"})
	for _, s := range statuses {
		t.AppendRow(table.Row{s.Job, s.Results, s.Responses, s.CaseDetails, s.PartialSearches, s.PendingFailures})
	}
	t.Render()
	return nil
}
