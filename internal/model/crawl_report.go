package model

import (
	"sync"
	"time"
)

// FailedReference records a reference that could not be fetched.
type FailedReference struct {
	// Reference is the query fragment that failed.
	Reference string `json:"reference"`

	// Error is the error message returned by the fetcher.
	Error string `json:"error"`
}

// CrawlReport collects statistics and problems of one crawl run.
// It is filled by the crawler and rendered by the report package.
//
// Design decision: Counters are kept in the report rather than in the
// crawler so that the pipeline can hand one value to every step and to
// the report writers.
type CrawlReport struct {
	// Roots are the references the run was started with.
	Roots []string `json:"roots"`

	// StartedAt and FinishedAt delimit the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Fetches is the number of pages requested from the source site.
	Fetches int `json:"fetches"`

	// CacheHits is the number of references answered by the visited cache.
	CacheHits int `json:"cache_hits"`

	// Rehydrated is the number of cache entries restored from the snapshot.
	Rehydrated int `json:"rehydrated"`

	// PeopleSaved is the number of person writes (including re-discoveries).
	PeopleSaved int `json:"people_saved"`

	// FamiliesSaved is the number of family writes.
	FamiliesSaved int `json:"families_saved"`

	// PeopleStored and FamiliesStored are the row counts after the run.
	PeopleStored   int `json:"people_stored"`
	FamiliesStored int `json:"families_stored"`

	// DeadEnds are references whose page does not denote a real person.
	DeadEnds []string `json:"dead_ends,omitempty"`

	// Blocked are references refused because the site flagged a robot.
	Blocked []string `json:"blocked,omitempty"`

	// Failed are references whose fetch failed.
	Failed []FailedReference `json:"failed,omitempty"`

	// ExportFile is the path of the interchange export, if written.
	ExportFile string `json:"export_file,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the first fatal error of the run, if any.
	Error string `json:"error,omitempty"`

	mu sync.Mutex
}

// NewCrawlReport creates a report for the given roots.
func NewCrawlReport(roots []string) *CrawlReport {
	return &CrawlReport{
		Roots:     roots,
		StartedAt: time.Now(),
	}
}

// AddFetch counts one page request.
func (r *CrawlReport) AddFetch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Fetches++
}

// AddCacheHit counts one reference answered by the cache.
func (r *CrawlReport) AddCacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CacheHits++
}

// AddPersonSaved counts one person write.
func (r *CrawlReport) AddPersonSaved() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PeopleSaved++
}

// AddFamilySaved counts one family write.
func (r *CrawlReport) AddFamilySaved() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FamiliesSaved++
}

// AddDeadEnd records a reference that is not a person.
func (r *CrawlReport) AddDeadEnd(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeadEnds = append(r.DeadEnds, ref)
}

// AddBlocked records a reference refused as robot traffic.
func (r *CrawlReport) AddBlocked(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Blocked = append(r.Blocked, ref)
}

// AddFailed records a reference whose fetch failed.
func (r *CrawlReport) AddFailed(ref string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, FailedReference{Reference: ref, Error: err.Error()})
}

// AddStep records a completed pipeline step.
func (r *CrawlReport) AddStep(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// Finish stamps the end of the run.
func (r *CrawlReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
}

// Duration returns the elapsed time of the run.
// It is zero until Finish is called.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasProblems reports whether any reference was blocked or failed.
func (r *CrawlReport) HasProblems() bool {
	return len(r.Blocked) > 0 || len(r.Failed) > 0 || r.Error != ""
}
