package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ancestry/internal/config"
	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
	"github.com/nao1215/ancestry/internal/report"
)

// NewDiffCmd creates the diff command.
// This command compares the people of the current and the previous crawl.
func NewDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the current crawl with the previous one",
		Long: `Diff compares the people stored by the last crawl with those of the
crawl before it, which 'ancestry crawl' keeps as <name>_old<ext>.

People are matched by permalink and reported as added, changed or removed.

Examples:
  # Compare the last two crawls
  ancestry diff

  # Compare two arbitrary databases
  ancestry diff --db tree.sqlite3 --previous archive/tree.sqlite3

  # Output the comparison as JSON
  ancestry diff -f json`,
		Args: cobra.NoArgs,
		RunE: runDiffCmd,
	}

	defaults := config.NewConfig()

	cmd.Flags().String("db", defaults.DBFile, "SQLite database of the current crawl")
	cmd.Flags().String("previous", "", "SQLite database of the previous crawl (default: <db>_old)")
	cmd.Flags().StringP("report-format", "f", defaults.ReportFormat, "Output format: text, markdown or json")
	cmd.Flags().StringP("output", "o", "", "Write the comparison to a file instead of stdout")

	return cmd
}

// runDiffCmd executes the diff command.
func runDiffCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	current, err := flags.GetString("db")
	if err != nil {
		return err
	}
	previous, err := flags.GetString("previous")
	if err != nil {
		return err
	}
	if previous == "" {
		previous = database.RotatedPath(current)
	}
	format, err := flags.GetString("report-format")
	if err != nil {
		return err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return err
	}

	setupLogger(cmd)

	diff, err := compareDatabases(cmd.Context(), previous, current)
	if err != nil {
		return err
	}

	return writeDiff(format, output, cmd.OutOrStdout(), diff)
}

// compareDatabases reads both databases concurrently and compares them.
func compareDatabases(ctx context.Context, previousPath, currentPath string) (*database.Diff, error) {
	var previous, current []*model.Person

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		previous, err = readPeople(ctx, previousPath)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = readPeople(ctx, currentPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return database.Compare(previous, current), nil
}

// readPeople lists the people of the database at path.
func readPeople(ctx context.Context, path string) ([]*model.Person, error) {
	db, err := database.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer db.Close()

	people, err := db.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return people, nil
}

// writeDiff writes diff in the requested format.
func writeDiff(format, path string, stdout io.Writer, diff *database.Diff) error {
	return writeReport(format, path, stdout, func(w report.Writer) error {
		_, err := w.WriteDiff(diff)
		return err
	})
}
