package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/ancestry/internal/log"
)

// NewRootCmd creates the root command for ancestry.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ancestry",
		Short: "Genealogy crawler for the Roglo database",
		Long: `ancestry crawls person pages of the Roglo genealogy database.

Starting from one or more person pages, it follows parent and spouse links,
stores every person and family in a SQLite database and writes a Gramps CSV
export. A cache snapshot lets a second run within 12 hours skip every page
already crawled.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewDiffCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag from the command or the root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// setupLogger creates the secure logger selected by the global flags and
// installs it as the default logger.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")

	var logger *slog.Logger
	if getBoolFlag(cmd, "log-json") {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}
