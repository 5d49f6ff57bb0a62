// Package extract turns the markup of one person page into a Person record
// and the references of its relatives.
//
// # Rules
//
// The source pages are semi-structured: fields are optional, their order
// varies and some labels exist in French and English. Extraction is split
// into small named rules, each of which reads one field and degrades to an
// empty value when the expected element is missing. Positional assumptions
// ("the second dated item is the death") are named constants in rules.go so
// they can be revisited when the site markup changes.
//
// Two conditions abort a page instead of degrading:
//   - ErrNotAPerson: the identity field is the "x x" placeholder
//   - ErrBlocked: the page was served to a client flagged as a robot
//
// # Usage
//
//	ex := extract.New()
//	rec, err := ex.Extract(markup)
//	if errors.Is(err, extract.ErrNotAPerson) {
//	    // dead end
//	}
//
// The package performs no I/O.
package extract
