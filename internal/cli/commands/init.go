package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const sampleConfig = `# Tagmark project configuration.
templates_dir: views
taglib_paths:
  - taglibs
output_dir: compiled
state_path: .tagmark/state.db
extensions:
  - .tm
`

const sampleTemplate = `<def tag="page" attrs="title">
  <html>
    <head>
      <title><%= title %></title>
    </head>
    <body param="body">
      <param-content/>
    </body>
  </html>
</def>

<page title="Welcome">
  <h1>It works</h1>
</page>
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a new tagmark project",
		Long: `Create a project skeleton with a configuration file, a templates
directory containing a sample template, and an empty tag library
directory. Defaults to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir)
		},
	}
}

func runInit(cmd *cobra.Command, dir string) error {
	cfgPath := filepath.Join(dir, "tagmark.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", cfgPath)
	}

	for _, sub := range []string{"views", "taglibs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	if err := os.WriteFile(cfgPath, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	sample := filepath.Join(dir, "views", "index.tm")
	if err := os.WriteFile(sample, []byte(sampleTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write sample template: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized tagmark project in %s\n", dir)
	fmt.Fprintln(cmd.OutOrStdout(), "Run 'tagmark compile' to compile the sample template.")
	return nil
}
