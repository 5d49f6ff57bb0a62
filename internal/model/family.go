package model

// FamilyKeySeparator separates the father and mother permalinks in a family key.
const FamilyKeySeparator = "#"

// Family is a couple identified by the permalinks of its two parents.
//
// Identity is positional: the father slot comes first. Swapping the slots
// yields a different key, so callers must assign slots consistently.
type Family struct {
	// ID is FatherPermalink + "#" + MotherPermalink.
	ID string `json:"id"`

	// FatherPermalink and MotherPermalink are empty strings when unresolved.
	FatherPermalink string `json:"father_permalink"`
	MotherPermalink string `json:"mother_permalink"`

	// Marriage facts, only known when the family was reached through a
	// spouse link.
	WeddingDate  string `json:"wedding_date"`
	WeddingPlace string `json:"wedding_place"`
	Source       string `json:"source"`
}

// FamilyKey returns the composite identifier of a couple.
// Unresolved parents are passed as empty strings. The result depends on
// the order of the arguments: FamilyKey(a, b) != FamilyKey(b, a) when a != b.
func FamilyKey(fatherPermalink, motherPermalink string) string {
	return fatherPermalink + FamilyKeySeparator + motherPermalink
}

// NewFamily creates a Family for the given parent permalinks.
func NewFamily(fatherPermalink, motherPermalink string) *Family {
	return &Family{
		ID:              FamilyKey(fatherPermalink, motherPermalink),
		FatherPermalink: fatherPermalink,
		MotherPermalink: motherPermalink,
	}
}

// HasParent reports whether at least one parent slot is filled.
// A family without any parent must not be persisted.
func (f *Family) HasParent() bool {
	return f.FatherPermalink != "" || f.MotherPermalink != ""
}

// MergeMarriage records marriage facts. Empty values never erase facts
// that were discovered through another traversal path.
func (f *Family) MergeMarriage(date, place, source string) {
	if date != "" {
		f.WeddingDate = date
	}
	if place != "" {
		f.WeddingPlace = place
	}
	if source != "" {
		f.Source = source
	}
}
