// Package family derives the identity of couples from the identities of
// their members and deduplicates them within one crawl.
//
// A couple can be reached twice: once from a child's "Parents" section and
// once from a parent's own "Spouses" section. Both paths must collapse onto
// the same Family value so that the marriage facts discovered on one path
// survive the write performed by the other.
package family

import (
	"sort"

	"github.com/nao1215/ancestry/internal/model"
)

// Registry interns Family values by their composite key.
// It is owned by one crawler and is not safe for concurrent use.
type Registry struct {
	families map[string]*model.Family
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*model.Family)}
}

// Get returns the Family for the ordered parent pair, creating it on
// first use. Later calls with the same pair return the same pointer.
func (r *Registry) Get(fatherPermalink, motherPermalink string) *model.Family {
	key := model.FamilyKey(fatherPermalink, motherPermalink)
	if f, ok := r.families[key]; ok {
		return f
	}
	f := model.NewFamily(fatherPermalink, motherPermalink)
	r.families[key] = f
	return f
}

// Lookup returns the interned Family of the couple in either slot order,
// or nil when the couple is unknown. The ordered pair is tried first.
// Single-parent keys are only matched as given.
func (r *Registry) Lookup(a, b string) *model.Family {
	if f, ok := r.families[model.FamilyKey(a, b)]; ok {
		return f
	}
	if a == "" || b == "" {
		return nil
	}
	return r.families[model.FamilyKey(b, a)]
}

// Put registers an existing Family, e.g. one read back from the store.
// An already interned family with the same key wins.
func (r *Registry) Put(f *model.Family) *model.Family {
	if existing, ok := r.families[f.ID]; ok {
		return existing
	}
	r.families[f.ID] = f
	return f
}

// Len returns the number of interned families.
func (r *Registry) Len() int {
	return len(r.families)
}

// All returns the interned families ordered by key.
func (r *Registry) All() []*model.Family {
	keys := make([]string, 0, len(r.families))
	for k := range r.families {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]*model.Family, 0, len(keys))
	for _, k := range keys {
		result = append(result, r.families[k])
	}
	return result
}
