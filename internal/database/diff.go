package database

import (
	"github.com/nao1215/ancestry/internal/model"
)

// Diff classifies the people of two crawls by permalink.
type Diff struct {
	// Unchanged people have identical rows in both crawls.
	Unchanged []*model.Person

	// Added people only exist in the current crawl.
	Added []*model.Person

	// Changed people exist in both crawls with different rows.
	// The current row is kept.
	Changed []*model.Person

	// Removed people only exist in the previous crawl.
	Removed []*model.Person
}

// Compare classifies current against previous. Both slices are expected in
// permalink order, as returned by ListPeople; the result keeps that order.
func Compare(previous, current []*model.Person) *Diff {
	before := make(map[string]*model.Person, len(previous))
	for _, p := range previous {
		before[p.Permalink] = p
	}

	d := &Diff{}
	seen := make(map[string]bool, len(current))
	for _, p := range current {
		seen[p.Permalink] = true
		old, ok := before[p.Permalink]
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case *old == *p:
			d.Unchanged = append(d.Unchanged, p)
		default:
			d.Changed = append(d.Changed, p)
		}
	}

	for _, p := range previous {
		if !seen[p.Permalink] {
			d.Removed = append(d.Removed, p)
		}
	}
	return d
}

// HasChanges reports whether the crawls differ.
func (d *Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Changed) > 0 || len(d.Removed) > 0
}
