package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/ancestry/internal/cache"
	"github.com/nao1215/ancestry/internal/extract"
	"github.com/nao1215/ancestry/internal/family"
	"github.com/nao1215/ancestry/internal/fetch"
	"github.com/nao1215/ancestry/internal/model"
)

// defaultBaseURL prefixes the reference of a page to form its Source.
const defaultBaseURL = "http://roglo.eu/roglo?"

// Store persists the records discovered by the crawler.
// *database.TreeDB implements it.
type Store interface {
	UpsertPerson(ctx context.Context, p *model.Person) error
	UpsertFamily(ctx context.Context, f *model.Family) error
	LinkFamily(ctx context.Context, f *model.Family, childPermalink string) error
}

// Crawler discovers people and families from person pages.
// It is not safe for concurrent use: one Crawler walks one tree at a time.
type Crawler struct {
	fetcher   fetch.Fetcher
	store     Store
	extractor *extract.Extractor
	visited   *cache.Visited
	registry  *family.Registry
	report    *model.CrawlReport
	baseURL   string
	logger    *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithExtractor sets the record extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(c *Crawler) {
		c.extractor = e
	}
}

// WithVisited sets the visited cache, typically one rehydrated from a snapshot.
func WithVisited(v *cache.Visited) Option {
	return func(c *Crawler) {
		c.visited = v
	}
}

// WithRegistry sets the family registry.
func WithRegistry(r *family.Registry) Option {
	return func(c *Crawler) {
		c.registry = r
	}
}

// WithReport sets the report that receives the crawl statistics.
func WithReport(r *model.CrawlReport) Option {
	return func(c *Crawler) {
		c.report = r
	}
}

// WithBaseURL sets the address prefix recorded as the Source of each person.
func WithBaseURL(baseURL string) Option {
	return func(c *Crawler) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler that reads pages from f and writes records to store.
func New(f fetch.Fetcher, store Store, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:   f,
		store:     store,
		extractor: extract.New(),
		visited:   cache.NewVisited(),
		registry:  family.NewRegistry(),
		report:    model.NewCrawlReport(nil),
		baseURL:   defaultBaseURL,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Visited returns the visited cache of the crawler.
func (c *Crawler) Visited() *cache.Visited {
	return c.visited
}

// Registry returns the family registry of the crawler.
func (c *Crawler) Registry() *family.Registry {
	return c.registry
}

// Reference returns the page reference of a crawl target.
// A full address yields its query part; anything else is used as is.
func Reference(target string) string {
	target = strings.TrimSpace(target)
	if strings.Contains(target, "?") {
		return extract.ExtractQuery(target)
	}
	return target
}

// Discover crawls the tree reachable from the page denoted by ref and
// returns the person of that page.
//
// It returns nil without error when the page is not a person, was served to
// a robot, or is already being discovered further up the traversal.
func (c *Crawler) Discover(ctx context.Context, ref string) (*model.Person, error) {
	return c.DiscoverWithExternalID(ctx, ref, "")
}

// DiscoverWithExternalID is Discover, recording externalID on the root person.
func (c *Crawler) DiscoverWithExternalID(ctx context.Context, ref, externalID string) (*model.Person, error) {
	ref = Reference(ref)
	if ref == "" {
		return nil, fetch.ErrEmptyReference
	}

	p, err := c.discover(ctx, ref, externalID)
	if err != nil {
		return nil, err
	}

	// A cached root keeps its stored external id unless a new one is given.
	if p != nil && externalID != "" && p.ExternalID != externalID {
		p.ExternalID = externalID
		if err := c.savePerson(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FetchError is returned when the page of a root reference cannot be
// retrieved. It lets callers tell a failed fetch, which only aborts that
// root, apart from store errors, which abort the whole crawl.
type FetchError struct {
	Ref string
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Ref, e.Err)
}

// Unwrap returns the underlying fetch error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// discover runs one page through the traversal.
func (c *Crawler) discover(ctx context.Context, ref, externalID string) (*model.Person, error) {
	switch entry := c.visited.Lookup(ref); entry.State {
	case cache.Resolved:
		c.report.AddCacheHit()
		c.logger.Debug("cache hit", "reference", ref, "permalink", entry.Person.Permalink)
		return entry.Person, nil
	case cache.InProgress:
		c.logger.Debug("reference already in progress", "reference", ref)
		return nil, nil
	case cache.DeadEnd, cache.Failed:
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.visited.MarkInProgress(ref)

	markup, err := c.fetcher.Fetch(ctx, ref)
	c.report.AddFetch()
	if err != nil {
		c.visited.MarkFailed(ref)
		return nil, &FetchError{Ref: ref, Err: err}
	}

	record, err := c.extractor.Extract(markup)
	switch {
	case errors.Is(err, extract.ErrNotAPerson):
		c.visited.MarkDeadEnd(ref)
		c.report.AddDeadEnd(ref)
		c.logger.Debug("not a person", "reference", ref)
		return nil, nil
	case errors.Is(err, extract.ErrBlocked):
		c.visited.MarkDeadEnd(ref)
		c.report.AddBlocked(ref)
		c.logger.Warn("page served to a robot, skipping", "reference", ref)
		return nil, nil
	case err != nil:
		c.visited.MarkDeadEnd(ref)
		return nil, fmt.Errorf("failed to extract %s: %w", ref, err)
	}

	person := record.Person
	person.Source = c.baseURL + ref
	person.ExternalID = externalID

	if err := c.savePerson(ctx, person); err != nil {
		return nil, err
	}
	c.resolve(ref, person)

	c.logger.Info("discovered person",
		"permalink", person.Permalink,
		"name", strings.TrimSpace(person.FirstName+" "+person.LastName))
	c.logger.Debug("person record", "person", person.String())

	if record.Parents != nil {
		if err := c.linkParents(ctx, person, record.Parents); err != nil {
			return nil, err
		}
	}
	if record.Spouse != nil {
		if err := c.linkSpouse(ctx, person, record.Spouse); err != nil {
			return nil, err
		}
	}

	return person, nil
}

// resolve records person under ref and, when still unknown, under its own
// permalink, which is how other pages usually link to it.
func (c *Crawler) resolve(ref string, person *model.Person) {
	c.visited.Resolve(ref, person)
	if person.Permalink != ref && c.visited.Lookup(person.Permalink).State == cache.Unvisited {
		c.visited.Resolve(person.Permalink, person)
	}
}

// relative discovers the page of a relative. A failed fetch is recorded and
// yields nil; every other error is returned.
func (c *Crawler) relative(ctx context.Context, ref string) (*model.Person, error) {
	if ref == "" {
		return nil, nil
	}

	p, err := c.discover(ctx, ref, "")
	var fe *FetchError
	if errors.As(err, &fe) && ctx.Err() == nil {
		c.report.AddFailed(ref, fe.Err)
		c.logger.Warn("failed to fetch relative, skipping", "reference", ref, "error", fe.Err)
		return nil, nil
	}
	return p, err
}

// linkParents resolves both parents and links the child to their family.
func (c *Crawler) linkParents(ctx context.Context, child *model.Person, refs *extract.ParentRefs) error {
	father, err := c.relative(ctx, refs.Father)
	if err != nil {
		return err
	}
	mother, err := c.relative(ctx, refs.Mother)
	if err != nil {
		return err
	}

	fatherLink, motherLink := permalinkOf(father), permalinkOf(mother)
	if fatherLink == "" && motherLink == "" {
		return nil
	}

	f := c.registry.Lookup(fatherLink, motherLink)
	if f == nil {
		f = c.registry.Get(fatherLink, motherLink)
	}
	if err := c.store.LinkFamily(ctx, f, child.Permalink); err != nil {
		return err
	}
	child.FamilyID = f.ID
	c.report.AddFamilySaved()
	c.logger.Debug("linked parents", "child", child.Permalink, "family", f.ID)
	return nil
}

// linkSpouse resolves the first spouse and records the couple with the
// marriage facts of the page. A couple already known in either slot order,
// e.g. from a child's parents section, keeps its family.
func (c *Crawler) linkSpouse(ctx context.Context, person *model.Person, block *extract.SpouseBlock) error {
	spouse, err := c.relative(ctx, block.Reference)
	if err != nil || spouse == nil {
		return err
	}

	f := c.registry.Lookup(person.Permalink, spouse.Permalink)
	if f == nil {
		f = c.registry.Get(family.AssignSlots(person, spouse))
	}
	f.MergeMarriage(block.WeddingDate, block.WeddingPlace, block.Source)

	if err := c.store.UpsertFamily(ctx, f); err != nil {
		return err
	}
	c.report.AddFamilySaved()
	c.logger.Debug("linked spouses", "family", f.ID, "wedding_date", f.WeddingDate)
	return nil
}

func (c *Crawler) savePerson(ctx context.Context, p *model.Person) error {
	if err := c.store.UpsertPerson(ctx, p); err != nil {
		return err
	}
	c.report.AddPersonSaved()
	return nil
}

func permalinkOf(p *model.Person) string {
	if p == nil {
		return ""
	}
	return p.Permalink
}
