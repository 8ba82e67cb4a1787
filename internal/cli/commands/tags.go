package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewTagsCommand creates the tags command.
func NewTagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags [template...]",
		Short: "List tags defined across the project",
		Long: `List tag definitions with their declared attributes and source
location. With template arguments, the named templates are compiled and
their tags listed, aliases included. Without arguments, the listing
comes from the artifacts recorded by the last compile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTags(cmd, args)
		},
	}
	return cmd
}

func runTags(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tag", "Kind", "Attributes", "Template", "Line"})

	total := 0
	if len(args) > 0 {
		for _, path := range args {
			tpl, err := cmdCtx.Project.CompileFile(path)
			if err != nil {
				return err
			}
			rel := relPath(cmdCtx.Cfg.ProjectRoot, path)
			for _, name := range tpl.TagNames() {
				if info, ok := tpl.Tags[name]; ok {
					t.AppendRow(table.Row{info.Name, "def", strings.Join(info.DeclaredAttrs, ", "), rel, info.Line})
					total++
					continue
				}
				if old, ok := tpl.Aliases[name]; ok {
					t.AppendRow(table.Row{name, "alias", "-> " + old, rel, ""})
					total++
				}
			}
		}
	} else {
		artifacts, err := cmdCtx.Store.ListArtifacts()
		if err != nil {
			return fmt.Errorf("failed to list artifacts: %w", err)
		}
		if len(artifacts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No compiled templates found. Run 'tagmark compile' first.")
			return nil
		}
		for _, a := range artifacts {
			rel := relPath(cmdCtx.Cfg.ProjectRoot, a.Path)
			for _, tag := range a.Tags {
				t.AppendRow(table.Row{tag.Name, "def", strings.Join(tag.DeclaredAttrs, ", "), rel, tag.Line})
				total++
			}
		}
	}

	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "(%d tags)\n", total)
	return nil
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
