// Package main provides the entry point for the ancestry CLI.
//
// ancestry crawls person pages of the Roglo genealogy database, follows
// parent and spouse links, and stores people and families in SQLite. The
// stored tree can be exported as a Gramps CSV file.
//
// Usage:
//
//	ancestry crawl <url-or-reference>...
//	ancestry export
//	ancestry diff
//
// See --help for all available options.
package main

// main is the entry point for ancestry.
func main() {
	Execute()
}
