// Package fetch retrieves person pages from the genealogy site.
//
// The crawler only depends on the Fetcher interface, so tests can serve
// pages from memory. HTTPFetcher is the production implementation: it
// prefixes every reference with the site base address, waits a fixed
// delay before each request and sends the headers of an ordinary browser.
//
// Design decision: the delay is the only politeness mechanism. The crawl is
// serial, so a fixed pause before every request bounds the request rate
// without a scheduler.
package fetch
