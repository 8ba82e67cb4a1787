package commands

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tagmark-lang/tagmark/internal/project"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var (
		watch      bool
		printToOut bool
	)

	cmd := &cobra.Command{
		Use:   "compile [template...]",
		Short: "Compile templates to generated source",
		Long: `Compile every template under the templates directory, or only the
templates named as arguments. Generated source is written under the
output directory and artifacts are recorded in the state database.`,
		Example: `  # Compile the whole project
  tagmark compile

  # Compile a single template
  tagmark compile views/index.tm

  # Print generated source instead of summarizing
  tagmark compile --print views/index.tm

  # Recompile on every change
  tagmark compile --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, watch, printToOut)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Watch templates and recompile on change")
	cmd.Flags().BoolVarP(&printToOut, "print", "p", false, "Print generated source to stdout")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string, watch, printToOut bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if watch {
		if len(args) > 0 {
			return fmt.Errorf("--watch compiles the whole project and takes no arguments")
		}
		return runWatch(cmd, cmdCtx)
	}

	if len(args) > 0 {
		return compilePaths(cmd, cmdCtx, args, printToOut)
	}

	results, err := cmdCtx.Project.CompileAll(cmd.Context())
	if err != nil {
		return err
	}
	if printToOut {
		for _, r := range results {
			fmt.Fprint(cmd.OutOrStdout(), r.Template.Combined())
		}
		return nil
	}
	printResults(cmd, results)
	return nil
}

func compilePaths(cmd *cobra.Command, cmdCtx *CommandContext, args []string, printToOut bool) error {
	for _, path := range args {
		tpl, err := cmdCtx.Project.CompileFile(path)
		if err != nil {
			return err
		}
		if printToOut {
			fmt.Fprint(cmd.OutOrStdout(), tpl.Combined())
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %s (%d tags)\n", path, len(tpl.TagNames()))
	}
	return nil
}

func runWatch(cmd *cobra.Command, cmdCtx *CommandContext) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl+C to stop)")
	return cmdCtx.Project.Watch(ctx, func(results []project.Result, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "compile failed: %v\n", err)
			return
		}
		printResults(cmd, results)
	})
}

func printResults(cmd *cobra.Command, results []project.Result) {
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %s (%d tags)\n",
			filepath.ToSlash(r.Path), len(r.Template.TagNames()))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d templates compiled\n", len(results))
}
