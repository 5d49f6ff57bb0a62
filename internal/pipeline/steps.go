package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/ancestry/internal/cache"
	"github.com/nao1215/ancestry/internal/crawler"
	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/export"
	"github.com/nao1215/ancestry/internal/family"
	"github.com/nao1215/ancestry/internal/fetch"
	"github.com/nao1215/ancestry/internal/model"
)

// Session holds the state shared by the steps of one crawl run.
// The restore step replaces Visited and fills Registry; the discover step
// hands both to the crawler.
type Session struct {
	// Store is the database of the current run.
	Store *database.TreeDB

	// Visited is the visited cache of the run.
	Visited *cache.Visited

	// Registry interns the families of the run.
	Registry *family.Registry
}

// NewSession creates a session writing to store with an empty cache.
func NewSession(store *database.TreeDB) *Session {
	return &Session{
		Store:    store,
		Visited:  cache.NewVisited(),
		Registry: family.NewRegistry(),
	}
}

// Target is one root of a crawl.
type Target struct {
	// Ref is the page reference or full address of the root.
	Ref string

	// ExternalID is recorded on the root person when not empty.
	ExternalID string
}

// RestoreCacheStep rehydrates the visited cache from a fresh snapshot and
// the database of the previous run, and carries the cached people and
// their families forward into the current database.
//
// Design decision: A cached reference is never fetched again, so its row
// must be copied into the new database here or it would be missing from
// the export.
type RestoreCacheStep struct {
	session      *Session
	snapshotPath string
	previousDB   string
	now          func() time.Time
	logger       *slog.Logger
}

// RestoreCacheStepOption configures a RestoreCacheStep.
type RestoreCacheStepOption func(*RestoreCacheStep)

// WithRestoreClock sets the clock used to judge snapshot freshness.
func WithRestoreClock(now func() time.Time) RestoreCacheStepOption {
	return func(s *RestoreCacheStep) {
		s.now = now
	}
}

// WithRestoreLogger sets a custom logger for the restore step.
func WithRestoreLogger(logger *slog.Logger) RestoreCacheStepOption {
	return func(s *RestoreCacheStep) {
		s.logger = logger
	}
}

// NewRestoreCacheStep creates a restore step reading the snapshot at
// snapshotPath and the rows of the database at previousDB.
func NewRestoreCacheStep(session *Session, snapshotPath, previousDB string, opts ...RestoreCacheStepOption) *RestoreCacheStep {
	s := &RestoreCacheStep{
		session:      session,
		snapshotPath: snapshotPath,
		previousDB:   previousDB,
		now:          time.Now,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *RestoreCacheStep) Name() string {
	return "restore_cache"
}

// Do executes the restore step. Every unusable input results in a cold
// start; only a failed write to the current database is an error.
func (s *RestoreCacheStep) Do(ctx context.Context, report *model.CrawlReport) error {
	now := s.now()
	if !cache.IsFresh(s.snapshotPath, now) {
		s.logger.Info("no fresh cache snapshot, starting cold", "snapshot", s.snapshotPath)
		return nil
	}
	if _, err := os.Stat(s.previousDB); err != nil {
		s.logger.Info("no previous database, starting cold", "database", s.previousDB)
		return nil
	}

	old, err := database.OpenReadOnly(s.previousDB)
	if err != nil {
		s.logger.Warn("failed to open previous database, starting cold", "database", s.previousDB, "error", err)
		return nil
	}
	defer old.Close()

	visited, err := cache.Load(ctx, s.snapshotPath, old, now)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("failed to load cache snapshot, starting cold", "snapshot", s.snapshotPath, "error", err)
		return nil
	}

	people := visited.People()
	if len(people) == 0 {
		return nil
	}

	families, err := old.ListFamilies(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("failed to read previous families, starting cold", "error", err)
		return nil
	}
	families = carriedFamilies(people, families)

	if err := s.session.Store.Import(ctx, people, families); err != nil {
		return fmt.Errorf("failed to carry cached records forward: %w", err)
	}

	for _, f := range families {
		s.session.Registry.Put(f)
	}
	s.session.Visited = visited
	report.Rehydrated = visited.Len()

	s.logger.Info("restored cache",
		"references", visited.Len(),
		"people", len(people),
		"families", len(families),
	)
	return nil
}

// carriedFamilies returns the families that belong to the carried people:
// the family of a carried child, and every couple whose known members
// are all carried.
func carriedFamilies(people []*model.Person, families []*model.Family) []*model.Family {
	carried := make(map[string]bool, len(people))
	childOf := make(map[string]bool)
	for _, p := range people {
		carried[p.Permalink] = true
		if p.FamilyID != "" {
			childOf[p.FamilyID] = true
		}
	}

	result := make([]*model.Family, 0)
	for _, f := range families {
		if childOf[f.ID] {
			result = append(result, f)
			continue
		}
		if f.FatherPermalink == "" && f.MotherPermalink == "" {
			continue
		}
		if (f.FatherPermalink == "" || carried[f.FatherPermalink]) &&
			(f.MotherPermalink == "" || carried[f.MotherPermalink]) {
			result = append(result, f)
		}
	}
	return result
}

// DiscoverStep crawls every root serially and saves the cache snapshot
// after each one.
type DiscoverStep struct {
	session      *Session
	fetcher      fetch.Fetcher
	targets      []Target
	snapshotPath string
	crawlerOpts  []crawler.Option
	logger       *slog.Logger
}

// DiscoverStepOption configures a DiscoverStep.
type DiscoverStepOption func(*DiscoverStep)

// WithSnapshotPath sets where the cache snapshot is saved.
// Empty disables saving.
func WithSnapshotPath(path string) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.snapshotPath = path
	}
}

// WithCrawlerOptions passes extra options to the crawler, such as the
// extractor vocabulary or the source base URL.
func WithCrawlerOptions(opts ...crawler.Option) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.crawlerOpts = append(s.crawlerOpts, opts...)
	}
}

// WithDiscoverLogger sets a custom logger for the discover step.
func WithDiscoverLogger(logger *slog.Logger) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.logger = logger
	}
}

// NewDiscoverStep creates a discover step for the given roots.
func NewDiscoverStep(session *Session, f fetch.Fetcher, targets []Target, opts ...DiscoverStepOption) *DiscoverStep {
	s := &DiscoverStep{
		session: session,
		fetcher: f,
		targets: targets,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discover step.
// A root whose page cannot be fetched is recorded and skipped; any other
// error stops the crawl after the snapshot has been saved.
func (s *DiscoverStep) Do(ctx context.Context, report *model.CrawlReport) error {
	opts := append([]crawler.Option{
		crawler.WithVisited(s.session.Visited),
		crawler.WithRegistry(s.session.Registry),
		crawler.WithReport(report),
		crawler.WithLogger(s.logger),
	}, s.crawlerOpts...)
	c := crawler.New(s.fetcher, s.session.Store, opts...)

	for _, target := range s.targets {
		err := s.discover(ctx, c, target, report)
		s.saveSnapshot(c.Visited())
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *DiscoverStep) discover(ctx context.Context, c *crawler.Crawler, target Target, report *model.CrawlReport) error {
	p, err := c.DiscoverWithExternalID(ctx, target.Ref, target.ExternalID)

	var fe *crawler.FetchError
	switch {
	case errors.As(err, &fe) && ctx.Err() == nil:
		report.AddFailed(fe.Ref, fe.Err)
		s.logger.Error("failed to fetch root, skipping", "target", target.Ref, "error", fe.Err)
		return nil
	case errors.Is(err, fetch.ErrEmptyReference):
		report.AddFailed(target.Ref, err)
		s.logger.Error("empty root reference, skipping", "target", target.Ref)
		return nil
	case err != nil:
		return fmt.Errorf("failed to crawl %s: %w", target.Ref, err)
	case p == nil:
		if c.Visited().Lookup(crawler.Reference(target.Ref)).State == cache.Failed {
			s.logger.Warn("root could not be fetched earlier in this run, skipping", "target", target.Ref)
			return nil
		}
		s.logger.Warn("root is not a person", "target", target.Ref)
		return nil
	}

	s.logger.Info("crawled root", "target", target.Ref, "permalink", p.Permalink)
	return nil
}

// saveSnapshot writes the snapshot. A failure only costs the next run its
// warm start, so it is logged rather than returned.
func (s *DiscoverStep) saveSnapshot(v *cache.Visited) {
	if s.snapshotPath == "" {
		return
	}
	if err := v.Save(s.snapshotPath); err != nil {
		s.logger.Warn("failed to save cache snapshot", "snapshot", s.snapshotPath, "error", err)
		return
	}
	s.logger.Debug("saved cache snapshot", "snapshot", s.snapshotPath, "references", v.Len())
}

// ExportStep writes the interchange export of the stored records.
type ExportStep struct {
	source   export.Source
	exporter *export.Exporter
	path     string
	logger   *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithExporter sets the exporter, e.g. one with a custom provenance label.
func WithExporter(e *export.Exporter) ExportStepOption {
	return func(s *ExportStep) {
		s.exporter = e
	}
}

// WithExportLogger sets a custom logger for the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		s.logger = logger
	}
}

// NewExportStep creates an export step writing the records of source to path.
func NewExportStep(source export.Source, path string, opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{
		source:   source,
		exporter: export.New(),
		path:     path,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do executes the export step.
func (s *ExportStep) Do(ctx context.Context, report *model.CrawlReport) error {
	summary, err := s.exporter.WriteFile(ctx, s.path, s.source)
	if err != nil {
		return err
	}
	report.ExportFile = s.path

	s.logger.Info("exported records",
		"file", s.path,
		"people", summary.People,
		"marriages", summary.Marriages,
		"children", summary.Children,
	)
	return nil
}

// Counter reports the number of stored rows. *database.TreeDB implements it.
type Counter interface {
	CountPeople(ctx context.Context) (int, error)
	CountFamilies(ctx context.Context) (int, error)
}

// CountStep records the number of stored rows in the report.
type CountStep struct {
	counter Counter
}

// NewCountStep creates a count step.
func NewCountStep(counter Counter) *CountStep {
	return &CountStep{counter: counter}
}

// Name returns the step name.
func (s *CountStep) Name() string {
	return "count"
}

// Do executes the count step.
func (s *CountStep) Do(ctx context.Context, report *model.CrawlReport) error {
	people, err := s.counter.CountPeople(ctx)
	if err != nil {
		return err
	}
	families, err := s.counter.CountFamilies(ctx)
	if err != nil {
		return err
	}
	report.PeopleStored = people
	report.FamiliesStored = families
	return nil
}
