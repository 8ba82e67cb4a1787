package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove compiled output and stored artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Project.Clean(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed compiled output and stored artifacts.")
			return nil
		},
	}
}
