package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
)

// ruleWidth is the width of the section rules of the text output.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so that the output can be piped to files unchanged.
type SimpleWriter struct {
	baseWriter

	// verbose lists dead ends and unchanged people as well.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl summary in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "ANCESTRY CRAWL REPORT")
	w.writeHeader(&sb, report)
	w.writeStatistics(&sb, report)
	w.writeProblems(&sb, report)
	writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteDiff outputs the comparison of two crawls in human-readable format.
func (w *SimpleWriter) WriteDiff(diff *database.Diff) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "ANCESTRY CRAWL COMPARISON")

	writeSection(&sb, "SUMMARY")
	fmt.Fprintf(&sb, "  Unchanged: %d\n", len(diff.Unchanged))
	fmt.Fprintf(&sb, "  Added:     %d\n", len(diff.Added))
	fmt.Fprintf(&sb, "  Changed:   %d\n", len(diff.Changed))
	fmt.Fprintf(&sb, "  Removed:   %d\n", len(diff.Removed))
	sb.WriteString("\n")

	if diff.HasChanges() || w.verbose {
		writeSection(&sb, "PEOPLE")
		writePeople(&sb, "+", diff.Added)
		writePeople(&sb, "~", diff.Changed)
		writePeople(&sb, "-", diff.Removed)
		if w.verbose {
			writePeople(&sb, "=", diff.Unchanged)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("  No differences\n\n")
	}

	writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the roots and the status of the run.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	fmt.Fprintf(sb, "Roots:          %s\n", strings.Join(report.Roots, ", "))
	fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration().Round(time.Second))
	fmt.Fprintf(sb, "Status:         %s\n", status(report))
	sb.WriteString("\n")
}

// writeStatistics writes the counters of the run.
func (w *SimpleWriter) writeStatistics(sb *strings.Builder, report *model.CrawlReport) {
	writeSection(sb, "STATISTICS")

	fmt.Fprintf(sb, "  Pages fetched:    %d\n", report.Fetches)
	fmt.Fprintf(sb, "  Cache hits:       %d\n", report.CacheHits)
	fmt.Fprintf(sb, "  Rehydrated:       %d\n", report.Rehydrated)
	fmt.Fprintf(sb, "  Person writes:    %d\n", report.PeopleSaved)
	fmt.Fprintf(sb, "  Family writes:    %d\n", report.FamiliesSaved)
	fmt.Fprintf(sb, "  People stored:    %d\n", report.PeopleStored)
	fmt.Fprintf(sb, "  Families stored:  %d\n", report.FamiliesStored)
	if report.ExportFile != "" {
		fmt.Fprintf(sb, "  Export file:      %s\n", report.ExportFile)
	}
	sb.WriteString("\n")
}

// writeProblems writes the references that could not be crawled.
func (w *SimpleWriter) writeProblems(sb *strings.Builder, report *model.CrawlReport) {
	if !report.HasProblems() && !(w.verbose && len(report.DeadEnds) > 0) {
		return
	}

	writeSection(sb, "PROBLEMS")

	if len(report.Failed) > 0 {
		fmt.Fprintf(sb, "[!!] Failed (%d)\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Fprintf(sb, "  * %s\n    Error: %s\n", f.Reference, f.Error)
		}
		sb.WriteString("\n")
	}

	if len(report.Blocked) > 0 {
		fmt.Fprintf(sb, "[!] Blocked (%d)\n", len(report.Blocked))
		for _, ref := range report.Blocked {
			fmt.Fprintf(sb, "  * %s\n", ref)
		}
		sb.WriteString("\n")
	}

	if w.verbose && len(report.DeadEnds) > 0 {
		fmt.Fprintf(sb, "[i] Dead ends (%d)\n", len(report.DeadEnds))
		for _, ref := range report.DeadEnds {
			fmt.Fprintf(sb, "  * %s\n", ref)
		}
		sb.WriteString("\n")
	}
}

func writePeople(sb *strings.Builder, marker string, people []*model.Person) {
	for _, p := range people {
		fmt.Fprintf(sb, "  [%s] %s (%s)\n", marker, displayName(p), p.Permalink)
	}
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", (ruleWidth-len(title))/2))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by ancestry\n")
	sb.WriteString("https://github.com/nao1215/ancestry\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
