// Package report renders the summary of a crawl run and the comparison of
// two crawls.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown output for sharing and documentation
//   - JSONWriter: Structured JSON output for tool integration
//
// Design decision: We separate report writing from the report data
// (which lives in the model package) so that new output formats can be
// added without touching the crawler.
package report
