package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewBuildsCommand creates the builds command.
func NewBuildsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "builds",
		Short: "Show recent build history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuilds(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of builds to show")
	return cmd
}

func runBuilds(cmd *cobra.Command, limit int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	builds, err := cmdCtx.Store.ListBuilds(limit)
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}
	if len(builds) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No builds recorded yet.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Started", "Status", "Templates", "Error"})
	for _, b := range builds {
		errMsg := b.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		t.AppendRow(table.Row{b.StartedAt.Format("2006-01-02 15:04:05"), b.Status, b.Templates, errMsg})
	}
	t.Render()
	return nil
}
