package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/ancestry/internal/cache"
	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
)

// personPage renders a minimal person page, optionally married to spouseRef.
func personPage(first, last, sex, spouseRef string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1><img alt="%s">`, sex)
	fmt.Fprintf(&b, `<a href="roglo?m=P;v=%s">%s</a> <a href="roglo?m=N;v=%s">%s</a>`, first, first, last, last)
	fmt.Fprintf(&b, `<input value="[%s/%s/0]"></h1>`, first, last)
	if spouseRef != "" {
		b.WriteString(`<h3>Mariages et enfants</h3><ul><li>Marié <a class="date" href="roglo?yg=1875">1875</a>`)
		fmt.Fprintf(&b, ` avec <b><a href="roglo?%s">spouse</a></b></li></ul>`, spouseRef)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// pageFetcher serves pages from memory and counts requests.
type pageFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	requests int
}

func (f *pageFetcher) Fetch(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	page, ok := f.pages[ref]
	if !ok {
		return "", fmt.Errorf("no page for %q", ref)
	}
	return page, nil
}

func couplePages() *pageFetcher {
	return &pageFetcher{pages: map[string]string{
		"p=jean;n=dupont;":  personPage("jean", "dupont", "H", "p=marie;n=martin;"),
		"p=marie;n=martin;": personPage("marie", "martin", "F", "p=jean;n=dupont;"),
	}}
}

func openDB(t *testing.T, path string) *database.TreeDB {
	t.Helper()
	db, err := database.Open(path, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestDiscoverStep tests a crawl of several roots.
func TestDiscoverStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db := openDB(t, filepath.Join(dir, "tree.sqlite3"))
	snapshot := filepath.Join(dir, "cache.json")

	session := NewSession(db)
	fetcher := couplePages()
	targets := []Target{
		{Ref: "http://roglo.eu/roglo?p=jean;n=dupont;", ExternalID: "I0001"},
		{Ref: "p=unknown;n=root;"},
		{Ref: "p=marie;n=martin;"},
	}

	report := model.NewCrawlReport(nil)
	step := NewDiscoverStep(session, fetcher, targets, WithSnapshotPath(snapshot))
	if err := step.Do(ctx, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.requests != 3 {
		t.Errorf("expected 3 requests, got %d", fetcher.requests)
	}
	if len(report.Failed) != 1 || report.Failed[0].Reference != "p=unknown;n=root;" {
		t.Errorf("expected the unknown root to be recorded as failed, got %+v", report.Failed)
	}
	if report.CacheHits == 0 {
		t.Error("expected the second spouse root to be a cache hit")
	}

	jean, err := db.GetPerson(ctx, "p=jean;n=dupont;")
	if err != nil || jean == nil {
		t.Fatalf("expected jean to be stored, got %v, %v", jean, err)
	}
	if jean.ExternalID != "I0001" {
		t.Errorf("expected external id I0001, got %q", jean.ExternalID)
	}

	families, err := db.ListFamilies(ctx)
	if err != nil {
		t.Fatalf("failed to list families: %v", err)
	}
	if len(families) != 1 || families[0].WeddingDate != "1875" {
		t.Errorf("expected one married couple, got %+v", families)
	}

	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("expected the snapshot to be saved: %v", err)
	}
}

// TestDiscoverStepRepeatedFailedRoot tests that a root whose fetch failed is
// not fetched again nor mistaken for a page without a person.
func TestDiscoverStepRepeatedFailedRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db := openDB(t, filepath.Join(dir, "tree.sqlite3"))
	fetcher := couplePages()
	targets := []Target{{Ref: "p=unknown;n=root;"}, {Ref: "http://roglo.eu/roglo?p=unknown;n=root;"}}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	report := model.NewCrawlReport(nil)
	step := NewDiscoverStep(NewSession(db), fetcher, targets, WithDiscoverLogger(logger))
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.requests != 1 {
		t.Errorf("expected 1 request, got %d", fetcher.requests)
	}
	if len(report.Failed) != 1 || report.Failed[0].Reference != "p=unknown;n=root;" {
		t.Errorf("expected one failed root, got %+v", report.Failed)
	}
	if len(report.DeadEnds) != 0 {
		t.Errorf("expected no dead ends, got %v", report.DeadEnds)
	}
	if strings.Contains(logs.String(), "not a person") {
		t.Errorf("expected the repeated root not to be reported as not a person, got:\n%s", logs.String())
	}
	if !strings.Contains(logs.String(), "could not be fetched earlier") {
		t.Errorf("expected the repeated root to be logged as failed, got:\n%s", logs.String())
	}
}

// TestDiscoverStepStoreFailure tests that a store error stops the crawl.
func TestDiscoverStepStoreFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "tree.sqlite3"), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	_ = db.Close()

	snapshot := filepath.Join(dir, "cache.json")
	step := NewDiscoverStep(NewSession(db), couplePages(), []Target{{Ref: "p=jean;n=dupont;"}}, WithSnapshotPath(snapshot))

	if err := step.Do(context.Background(), model.NewCrawlReport(nil)); err == nil {
		t.Fatal("expected error from a closed store")
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("expected the snapshot to be saved before stopping: %v", err)
	}
}

// seedPreviousRun writes the database and snapshot a finished run leaves behind.
func seedPreviousRun(t *testing.T, dir string) (dbPath, snapshot string) {
	t.Helper()

	ctx := context.Background()
	dbPath = filepath.Join(dir, "tree_old.sqlite3")
	snapshot = filepath.Join(dir, "cache.json")

	db, err := database.Open(dbPath, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	session := NewSession(db)
	step := NewDiscoverStep(session, couplePages(), []Target{{Ref: "p=jean;n=dupont;"}}, WithSnapshotPath(snapshot))
	if err := step.Do(ctx, model.NewCrawlReport(nil)); err != nil {
		t.Fatalf("failed to crawl previous run: %v", err)
	}
	return dbPath, snapshot
}

// TestRestoreCacheStep tests that a warm start carries the cached records
// forward and fetches nothing again.
func TestRestoreCacheStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	previous, snapshot := seedPreviousRun(t, dir)

	db := openDB(t, filepath.Join(dir, "tree.sqlite3"))
	session := NewSession(db)
	report := model.NewCrawlReport(nil)

	if err := NewRestoreCacheStep(session, snapshot, previous).Do(ctx, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Rehydrated == 0 {
		t.Error("expected rehydrated entries")
	}
	if got := session.Visited.Lookup("p=jean;n=dupont;").State; got != cache.Resolved {
		t.Errorf("expected jean to be resolved, got %v", got)
	}
	if session.Registry.Len() != 1 {
		t.Errorf("expected the couple in the registry, got %d", session.Registry.Len())
	}
	if n, _ := db.CountPeople(ctx); n != 2 {
		t.Errorf("expected 2 carried people, got %d", n)
	}
	if n, _ := db.CountFamilies(ctx); n != 1 {
		t.Errorf("expected 1 carried family, got %d", n)
	}

	fetcher := &pageFetcher{pages: map[string]string{}}
	step := NewDiscoverStep(session, fetcher, []Target{{Ref: "p=jean;n=dupont;"}})
	if err := step.Do(ctx, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.requests != 0 {
		t.Errorf("expected no requests for a cached root, got %d", fetcher.requests)
	}
}

// TestRestoreCacheStepColdStart tests the inputs that leave the cache empty.
func TestRestoreCacheStepColdStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) (previous, snapshot string, now func() time.Time)
	}{
		{
			name: "stale snapshot",
			setup: func(t *testing.T, dir string) (string, string, func() time.Time) {
				previous, snapshot := seedPreviousRun(t, dir)
				later := func() time.Time { return time.Now().Add(cache.FreshnessThreshold + time.Hour) }
				return previous, snapshot, later
			},
		},
		{
			name: "missing previous database",
			setup: func(t *testing.T, dir string) (string, string, func() time.Time) {
				_, snapshot := seedPreviousRun(t, dir)
				return filepath.Join(dir, "none.sqlite3"), snapshot, time.Now
			},
		},
		{
			name: "corrupt snapshot",
			setup: func(t *testing.T, dir string) (string, string, func() time.Time) {
				previous, snapshot := seedPreviousRun(t, dir)
				if err := os.WriteFile(snapshot, []byte(`{"p=jean;`), 0600); err != nil {
					t.Fatalf("failed to corrupt snapshot: %v", err)
				}
				return previous, snapshot, time.Now
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			previous, snapshot, now := tt.setup(t, dir)

			db := openDB(t, filepath.Join(dir, "tree.sqlite3"))
			session := NewSession(db)
			report := model.NewCrawlReport(nil)

			step := NewRestoreCacheStep(session, snapshot, previous, WithRestoreClock(now))
			if err := step.Do(context.Background(), report); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Rehydrated != 0 || session.Visited.Len() != 0 {
				t.Errorf("expected a cold start, got %d entries", session.Visited.Len())
			}
			if n, _ := db.CountPeople(context.Background()); n != 0 {
				t.Errorf("expected no carried people, got %d", n)
			}
		})
	}
}

// TestCarriedFamilies tests which families follow the carried people.
func TestCarriedFamilies(t *testing.T) {
	t.Parallel()

	people := []*model.Person{
		{Permalink: "p=paul;n=dupont;", FamilyID: "p=jean;n=dupont;#p=marie;n=martin;"},
		{Permalink: "p=luc;n=durand;"},
		{Permalink: "p=eve;n=roux;"},
	}
	parents := model.NewFamily("p=jean;n=dupont;", "p=marie;n=martin;")
	couple := model.NewFamily("p=luc;n=durand;", "p=eve;n=roux;")
	widower := model.NewFamily("p=luc;n=durand;", "")
	stranger := model.NewFamily("p=luc;n=durand;", "p=ines;n=blanc;")

	got := carriedFamilies(people, []*model.Family{parents, couple, widower, stranger})

	want := []*model.Family{parents, couple, widower}
	if len(got) != len(want) {
		t.Fatalf("expected %d families, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i].ID, got[i].ID)
		}
	}
}

// TestExportStep tests that the export file is written and recorded.
func TestExportStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db := openDB(t, filepath.Join(dir, "tree.sqlite3"))
	if err := db.UpsertPerson(ctx, &model.Person{Permalink: "p=jean;n=dupont;", FirstName: "Jean"}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	path := filepath.Join(dir, "out", "export.csv")
	report := model.NewCrawlReport(nil)
	if err := NewExportStep(db, path).Do(ctx, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ExportFile != path {
		t.Errorf("expected export file %q, got %q", path, report.ExportFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.Contains(string(data), "p=jean;n=dupont;") {
		t.Errorf("expected jean in the export, got %q", data)
	}
}

// fakeCounter is a Counter with fixed results.
type fakeCounter struct {
	people, families int
	err              error
}

func (c fakeCounter) CountPeople(context.Context) (int, error)   { return c.people, c.err }
func (c fakeCounter) CountFamilies(context.Context) (int, error) { return c.families, c.err }

// TestCountStep tests that row counts reach the report.
func TestCountStep(t *testing.T) {
	t.Parallel()

	t.Run("records counts", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport(nil)
		if err := NewCountStep(fakeCounter{people: 7, families: 3}).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.PeopleStored != 7 || report.FamiliesStored != 3 {
			t.Errorf("unexpected counts %d/%d", report.PeopleStored, report.FamiliesStored)
		}
	})

	t.Run("returns store error", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("database is locked")
		err := NewCountStep(fakeCounter{err: storeErr}).Do(context.Background(), model.NewCrawlReport(nil))
		if !errors.Is(err, storeErr) {
			t.Errorf("expected %v, got %v", storeErr, err)
		}
	})
}
