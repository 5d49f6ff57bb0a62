// Package config provides configuration structures and utilities for ancestry.
// It defines the options for fetching pages from the genealogy site, the
// locations of the database, cache snapshot and export files, and the
// vocabulary used to recognize sections and provenance text on a page.
package config
