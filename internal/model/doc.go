// Package model defines the core data structures used throughout ancestry.
//
// This package contains the following main types:
//   - Person: One person record scraped from a genealogy page
//   - Family: A couple identified by the permalinks of its two parents
//   - CrawlReport: Statistics and problems collected during one crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The extractor, crawler, store and exporter all share these
// types, so centralizing them prevents import cycles.
package model
