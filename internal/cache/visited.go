package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/nao1215/ancestry/internal/model"
)

// State is the traversal state of a page reference.
type State int

const (
	// Unvisited references have no entry.
	Unvisited State = iota

	// InProgress references are being fetched or extracted. Meeting one
	// again means the traversal went around a cycle.
	InProgress

	// Resolved references denote a stored person.
	Resolved

	// DeadEnd references denote no person: a placeholder page or a page
	// served to a robot. They are not retried during the process and are
	// never written to the snapshot.
	DeadEnd

	// Failed references could not be fetched. Like dead ends they are not
	// retried during the process and are never written to the snapshot.
	Failed
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Unvisited:
		return "unvisited"
	case InProgress:
		return "in progress"
	case Resolved:
		return "resolved"
	case DeadEnd:
		return "dead end"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is the state of one reference.
// Person is set only when State is Resolved.
type Entry struct {
	State  State
	Person *model.Person
}

// Visited maps page references to their traversal state.
// The zero value is not usable; use NewVisited.
//
// The traversal is serial, but the map is still guarded so that the
// snapshot can be saved from another goroutine on interrupt.
type Visited struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewVisited returns an empty cache.
func NewVisited() *Visited {
	return &Visited{entries: make(map[string]Entry)}
}

// Lookup returns the entry of ref. Absent references are Unvisited.
func (v *Visited) Lookup(ref string) Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.entries[ref]
}

// MarkInProgress claims ref for discovery.
// It returns false, leaving the entry untouched, when ref is already known.
func (v *Visited) MarkInProgress(ref string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.entries[ref]; ok {
		return false
	}
	v.entries[ref] = Entry{State: InProgress}
	return true
}

// Resolve records the person denoted by ref.
func (v *Visited) Resolve(ref string, p *model.Person) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[ref] = Entry{State: Resolved, Person: p}
}

// MarkDeadEnd records that ref denotes no person.
func (v *Visited) MarkDeadEnd(ref string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[ref] = Entry{State: DeadEnd}
}

// MarkFailed records that the page of ref could not be fetched.
func (v *Visited) MarkFailed(ref string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[ref] = Entry{State: Failed}
}

// Len returns the number of known references, dead ends included.
func (v *Visited) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// Permalinks returns the permalink of every resolved reference.
func (v *Visited) Permalinks() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]string, len(v.entries))
	for ref, e := range v.entries {
		if e.State == Resolved && e.Person != nil {
			out[ref] = e.Person.Permalink
		}
	}
	return out
}

// People returns the distinct resolved people ordered by permalink.
// Several references may denote the same person.
func (v *Visited) People() []*model.Person {
	v.mu.Lock()
	defer v.mu.Unlock()

	byLink := make(map[string]*model.Person)
	for _, e := range v.entries {
		if e.State == Resolved && e.Person != nil {
			byLink[e.Person.Permalink] = e.Person
		}
	}

	people := make([]*model.Person, 0, len(byLink))
	for _, link := range slices.Sorted(maps.Keys(byLink)) {
		people = append(people, byLink[link])
	}
	return people
}
