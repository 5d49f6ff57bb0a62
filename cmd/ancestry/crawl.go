package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/ancestry/internal/config"
	"github.com/nao1215/ancestry/internal/crawler"
	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/export"
	"github.com/nao1215/ancestry/internal/extract"
	"github.com/nao1215/ancestry/internal/fetch"
	"github.com/nao1215/ancestry/internal/model"
	"github.com/nao1215/ancestry/internal/pipeline"
	"github.com/nao1215/ancestry/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url-or-reference]...",
		Short: "Crawl a family tree from one or more person pages",
		Long: `Crawl discovers every person reachable from the given person pages by
following parent and spouse links, and stores people and families in SQLite.

Each argument is a full page address or the query part of one. The previous
database is moved aside as <name>_old<ext>; if the cache snapshot is less
than 12 hours old, people crawled by the previous run are carried over
instead of being fetched again.

Examples:
  # Crawl the tree of one person
  ancestry crawl "http://roglo.eu/roglo?lang=fr;p=jean;n=dupont"

  # Crawl two roots and record their identifiers in another tool
  ancestry crawl p=jean;n=dupont p=marie;n=martin --external-id I0001 --external-id I0002

  # Be gentler with the site and go through a SOCKS5 proxy
  ancestry crawl --delay 5s --proxy 127.0.0.1:9050 p=jean;n=dupont

  # Write a Markdown summary to a file
  ancestry crawl -f markdown -o summary.md p=jean;n=dupont

Configuration file (.ancestry) example:
  site:
    delay: 3s
    cookie: "lang=fr"
  vocabulary:
    spousesHeadings: ["Mariages et enfants"]`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	defaults := config.NewConfig()

	// Storage flags
	cmd.Flags().String("db", defaults.DBFile, "SQLite database file")
	cmd.Flags().String("cache", defaults.CacheFile, "Cache snapshot file")
	cmd.Flags().StringP("export", "x", defaults.ExportFile, "Gramps CSV export file (empty to disable)")
	cmd.Flags().Bool("no-rotate", false, "Keep the existing database instead of moving it aside")

	// Fetch flags
	cmd.Flags().Duration("delay", defaults.Delay, "Delay before every request")
	cmd.Flags().DurationP("timeout", "t", defaults.Timeout, "Timeout of one request")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address ([user:password@]host:port)")

	// Roots
	cmd.Flags().StringArray("external-id", nil, "External identifier of the root at the same position (repeatable)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ancestry in current or home directory)")

	// Report flags
	cmd.Flags().StringP("report-format", "f", defaults.ReportFormat, "Run summary format: text, markdown or json")
	cmd.Flags().StringP("output", "o", "", "Write the run summary to a file instead of stdout")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping after the current request...")
			cancel()
		case <-ctx.Done():
		}
	}()

	f, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	return runCrawl(ctx, cfg, f, logger, cmd.OutOrStdout())
}

// buildCrawlConfig creates a Config from the defaults, the configuration
// file and the command flags, in increasing order of precedence.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}

	if cfg.DBFile, err = flags.GetString("db"); err != nil {
		return nil, err
	}
	if cfg.CacheFile, err = flags.GetString("cache"); err != nil {
		return nil, err
	}
	if cfg.ExportFile, err = flags.GetString("export"); err != nil {
		return nil, err
	}
	noRotate, err := flags.GetBool("no-rotate")
	if err != nil {
		return nil, err
	}
	cfg.RotateDB = !noRotate

	// Site settings from the file win over flag defaults, not over flags.
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	if cfg.ExternalIDs, err = flags.GetStringArray("external-id"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("report-format"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.Targets = args

	return cfg, nil
}

// loadConfigFile applies the configuration file to cfg.
// If the user explicitly specified a path, a missing file is an error;
// otherwise the defaults are kept.
func loadConfigFile(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath == "" {
		if explicitConfigPath {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ApplyFile(file)
	return nil
}

// newFetcher creates the HTTP fetcher described by cfg.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetch.HTTPFetcher, error) {
	opts := []fetch.Option{
		fetch.WithDelay(cfg.Delay),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithAcceptLanguage(cfg.AcceptLanguage),
		fetch.WithLogger(logger),
	}
	if cfg.Cookie != "" {
		opts = append(opts, fetch.WithCookie(cfg.Cookie))
		logger.Debug("using site cookie", "cookie", cfg.Cookie)
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(cfg.Headers))
		logger.Debug("using custom headers", headerGroup(cfg.Headers))
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
		logger.Info("using SOCKS5 proxy", "proxy", cfg.ProxyAddress)
	}

	f, err := fetch.NewHTTPFetcher(cfg.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	return f, nil
}

// headerGroup logs custom headers under a "headers" group, one attribute per
// header in name order, so that credential headers are masked by name.
func headerGroup(headers map[string]string) slog.Attr {
	attrs := make([]any, 0, len(headers))
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		attrs = append(attrs, slog.String(name, headers[name]))
	}
	return slog.Group("headers", attrs...)
}

// extractVocabulary converts the configured vocabulary for the extractor.
func extractVocabulary(v config.Vocabulary) extract.Vocabulary {
	return extract.Vocabulary{
		ParentsHeadings:  v.ParentsHeadings,
		SpousesHeadings:  v.SpousesHeadings,
		BirthKeywords:    v.BirthKeywords,
		DeathKeywords:    v.DeathKeywords,
		MarriageKeywords: v.MarriageKeywords,
	}
}

// runCrawl crawls every target of cfg with f and writes the run summary to
// the configured output. The summary is written even when the crawl fails.
func runCrawl(ctx context.Context, cfg *config.Config, f fetch.Fetcher, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"database", cfg.DBFile,
		"delay", cfg.Delay,
	)

	db, err := database.Open(cfg.DBFile, database.Options{
		CreateIfNotExists: true,
		Rotate:            cfg.RotateDB,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previousDB := cfg.DBFile
	if cfg.RotateDB {
		previousDB = database.RotatedPath(cfg.DBFile)
	}

	targets := make([]pipeline.Target, len(cfg.Targets))
	for i, t := range cfg.Targets {
		targets[i] = pipeline.Target{Ref: t, ExternalID: cfg.ExternalID(i)}
	}

	session := pipeline.NewSession(db)
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewRestoreCacheStep(session, cfg.CacheFile, previousDB,
		pipeline.WithRestoreLogger(logger),
	))
	p.AddStep(pipeline.NewDiscoverStep(session, f, targets,
		pipeline.WithSnapshotPath(cfg.CacheFile),
		pipeline.WithDiscoverLogger(logger),
		pipeline.WithCrawlerOptions(
			crawler.WithExtractor(extract.New(extract.WithVocabulary(extractVocabulary(cfg.Vocabulary)))),
			crawler.WithBaseURL(cfg.BaseURL),
		),
	))
	if cfg.ExportFile != "" {
		p.AddStep(pipeline.NewExportStep(db, cfg.ExportFile,
			pipeline.WithExporter(export.New(
				export.WithBaseURL(cfg.BaseURL),
				export.WithLabel(cfg.ProvenanceLabel),
			)),
			pipeline.WithExportLogger(logger),
		))
	}
	p.AddStep(pipeline.NewCountStep(db))

	crawlReport := model.NewCrawlReport(cfg.Targets)
	execErr := p.Execute(ctx, crawlReport)

	if err := writeReport(cfg.ReportFormat, cfg.ReportFile, stdout, func(w report.Writer) error {
		_, err := w.Write(crawlReport)
		return err
	}); err != nil {
		return errors.Join(execErr, fmt.Errorf("failed to write report: %w", err))
	}

	return execErr
}

// writeReport opens the report destination, creates the writer of the
// requested format and hands it to write.
func writeReport(format, path string, stdout io.Writer, write func(report.Writer) error) error {
	output := stdout
	if path != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w, err := report.NewWriter(format, output, getVersion())
	if err != nil {
		return err
	}
	return write(w)
}
