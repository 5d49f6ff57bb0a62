// Package crawler discovers a family tree by walking person pages.
//
// # Architecture
//
// The Crawler performs a serial depth-first traversal. For every page it
// fetches the markup, extracts one person record, writes it to the store and
// then follows the first links of the "Parents" and "Spouses" sections.
// Children are never followed directly: they are reached as the root or
// through their own parents.
//
// Design decision: the person is written and resolved in the visited cache
// before any relative is followed. A relative whose page links back to the
// person (a spouse, typically) then finds it resolved or in progress instead
// of starting the same discovery again, so cycles terminate.
//
// # Families
//
// A couple is reached from the child's "Parents" section with its slots
// already ordered, or from one spouse's "Spouses" section, in which case
// family.AssignSlots orders them. Both paths share one Family value through
// the family.Registry, so marriage facts found on the spouse path survive the
// write of the parents path.
//
// # Failures
//
// A page that is not a person, or that was served to a robot, is a dead end:
// discovery returns nil and nothing is written. A failed fetch aborts the
// crawl only for the root reference; for a relative it is recorded in the
// report and that side of the tree is left empty. Store errors always abort.
//
// # Usage
//
//	c := crawler.New(fetcher, db, crawler.WithBaseURL(cfg.BaseURL))
//	person, err := c.Discover(ctx, "p=jean;n=dupont;")
package crawler
