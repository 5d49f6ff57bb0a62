package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/ancestry/internal/config"
	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/export"
	"github.com/nao1215/ancestry/internal/model"
	"github.com/nao1215/ancestry/internal/pipeline"
)

// errNoExportFile is returned when the export destination is empty.
var errNoExportFile = errors.New("export file path is required")

// NewExportCmd creates the export command.
// This command writes the Gramps CSV of an existing database without crawling.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the Gramps CSV of an existing database",
		Long: `Export reads a database written by 'ancestry crawl' and writes the
Gramps CSV import file again, without fetching any page.

The base URL and provenance label are taken from the configuration file.

Examples:
  # Export the default database to export.csv
  ancestry export

  # Export the database of the previous run
  ancestry export --db ~/.local/share/ancestry/ancestry_old.sqlite3 -o previous.csv`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	defaults := config.NewConfig()

	cmd.Flags().String("db", defaults.DBFile, "SQLite database file")
	cmd.Flags().StringP("output", "o", defaults.ExportFile, "Gramps CSV export file")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ancestry in current or home directory)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	var err error
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if err := loadConfigFile(cfg); err != nil {
		return err
	}
	if cfg.DBFile, err = cmd.Flags().GetString("db"); err != nil {
		return err
	}
	if cfg.ExportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}

	return runExport(cmd.Context(), cfg, setupLogger(cmd), cmd.OutOrStdout())
}

// runExport writes the export of cfg.DBFile to cfg.ExportFile and prints
// a one-line summary.
func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	if cfg.ExportFile == "" {
		return errNoExportFile
	}
	db, err := database.OpenReadOnly(cfg.DBFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewExportStep(db, cfg.ExportFile,
			pipeline.WithExporter(export.New(
				export.WithBaseURL(cfg.BaseURL),
				export.WithLabel(cfg.ProvenanceLabel),
			)),
			pipeline.WithExportLogger(logger),
		),
		pipeline.NewCountStep(db),
	)

	report := model.NewCrawlReport(nil)
	if err := p.Execute(ctx, report); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Exported %d people and %d families to %s\n",
		report.PeopleStored, report.FamiliesStored, report.ExportFile)
	return nil
}
