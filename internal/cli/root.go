// Package cli provides the command-line interface for tagmark.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tagmark-lang/tagmark/internal/cli/commands"
	"github.com/tagmark-lang/tagmark/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tagmark",
		Short: "Tagmark - tag markup template compiler",
		Long: `Tagmark compiles tag markup templates into procedural template source.

Templates define reusable tags with attributes and named parameters,
call them like HTML elements, and customize call sites with parameter
tags. The compiler resolves definitions, aliases, and includes across
tag libraries and emits one source artifact per template.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, log)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if file := config.FileUsed(); file != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", file)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Tag markup template compiler
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tagmark.yaml)")
	rootCmd.PersistentFlags().String("templates-dir", "", "Path to templates directory")
	rootCmd.PersistentFlags().String("output-dir", "", "Path to compiled output directory")
	rootCmd.PersistentFlags().String("state-path", "", "Path to state database")
	rootCmd.PersistentFlags().String("theme", "", "Theme applied to every template")
	rootCmd.PersistentFlags().Bool("metadata", false, "Emit debug metadata comments in generated source")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewCompileCommand())
	rootCmd.AddCommand(commands.NewTagsCommand())
	rootCmd.AddCommand(commands.NewBuildsCommand())
	rootCmd.AddCommand(commands.NewCleanCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
