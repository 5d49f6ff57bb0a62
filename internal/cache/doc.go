// Package cache keeps track of the pages visited during a crawl.
//
// Visited maps a page reference to its state: in progress, resolved to a
// person, a dead end, or failed. Marking a reference in progress before its page is
// fetched is what stops the traversal from looping on cyclic links, such as
// a spouse page that links back to the person being discovered.
//
// The resolved entries survive between runs as a snapshot file mapping each
// reference to its permalink. A snapshot younger than FreshnessThreshold is
// rehydrated into live records from the previous database, so a crawl that
// was interrupted resumes without refetching the pages it already stored.
package cache
