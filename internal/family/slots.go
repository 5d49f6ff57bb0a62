package family

import "github.com/nao1215/ancestry/internal/model"

// AssignSlots decides which spouse fills the father slot of their Family.
//
// Rules, in order:
//  1. If both sexes are known and differ, each spouse takes its own slot.
//  2. If exactly one sex is known, that spouse decides: male takes the
//     father slot, female the mother slot, and the other spouse takes the
//     remaining slot.
//  3. Otherwise (both unknown, or both the same sex) the lexicographically
//     smaller permalink takes the father slot.
//
// Rule 3 is symmetric, so the resulting key does not depend on which
// spouse was visited first and stays stable across re-crawls.
func AssignSlots(a, b *model.Person) (fatherPermalink, motherPermalink string) {
	aKnown, bKnown := a.Sex.IsKnown(), b.Sex.IsKnown()

	switch {
	case aKnown && bKnown && a.Sex != b.Sex:
		if a.Sex == model.SexMale {
			return a.Permalink, b.Permalink
		}
		return b.Permalink, a.Permalink
	case aKnown && !bKnown:
		if a.Sex == model.SexMale {
			return a.Permalink, b.Permalink
		}
		return b.Permalink, a.Permalink
	case bKnown && !aKnown:
		if b.Sex == model.SexMale {
			return b.Permalink, a.Permalink
		}
		return a.Permalink, b.Permalink
	}

	if a.Permalink <= b.Permalink {
		return a.Permalink, b.Permalink
	}
	return b.Permalink, a.Permalink
}
