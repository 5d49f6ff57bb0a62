// Package pipeline runs one crawl as a sequence of steps.
//
// A crawl restores the visited cache, discovers every root, writes the
// interchange export and counts the stored rows. Each stage is a Step that
// receives the run's CrawlReport and records what it did.
//
// Design decision: We use a pipeline instead of direct function calls so
// that the crawl and export commands share the same steps, error handling
// and logging, and so that an interrupt stops the run between stages.
package pipeline
