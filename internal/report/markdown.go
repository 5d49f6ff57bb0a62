package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, alerts and mermaid charts without
// hand-escaping.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl summary in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStatistics(md, report)
	w.writeProblems(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteDiff outputs the comparison of two crawls in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *database.Diff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Ancestry Crawl Comparison")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"People", "Count"},
		Rows: [][]string{
			{"Unchanged", strconv.Itoa(len(diff.Unchanged))},
			{"Added", strconv.Itoa(len(diff.Added))},
			{"Changed", strconv.Itoa(len(diff.Changed))},
			{"Removed", strconv.Itoa(len(diff.Removed))},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("Both crawls hold the same people.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	w.writeDiffChart(md, diff)

	sections := []struct {
		title  string
		people []*model.Person
	}{
		{"Added", diff.Added},
		{"Changed", diff.Changed},
		{"Removed", diff.Removed},
	}
	for _, s := range sections {
		if len(s.people) == 0 {
			continue
		}
		md.H2(s.title)
		md.PlainText("")
		w.writePeopleTable(md, s.people)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Ancestry Crawl Report")
	md.PlainText("")

	roots := make([]string, len(report.Roots))
	for i, r := range report.Roots {
		roots[i] = "`" + r + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Roots", strings.Join(roots, ", ")},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Second).String()},
			{"Status", w.statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func (w *MarkdownWriter) statusText(report *model.CrawlReport) string {
	switch {
	case report.Error != "":
		return "❌ Error - " + report.Error
	case report.HasProblems():
		return "⚠️ Complete with problems"
	default:
		return "✅ Complete"
	}
}

// writeStatistics writes the counters of the run.
func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Statistics")
	md.PlainText("")

	rows := [][]string{
		{"Pages fetched", strconv.Itoa(report.Fetches)},
		{"Cache hits", strconv.Itoa(report.CacheHits)},
		{"Rehydrated", strconv.Itoa(report.Rehydrated)},
		{"Person writes", strconv.Itoa(report.PeopleSaved)},
		{"Family writes", strconv.Itoa(report.FamiliesSaved)},
		{"**People stored**", "**" + strconv.Itoa(report.PeopleStored) + "**"},
		{"**Families stored**", "**" + strconv.Itoa(report.FamiliesStored) + "**"},
	}
	if report.ExportFile != "" {
		rows = append(rows, []string{"Export file", "`" + report.ExportFile + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Fetches+report.CacheHits > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Reference Resolution"),
			piechart.WithShowData(true),
		)
		if report.Fetches > 0 {
			chart.LabelAndIntValue("Fetched", uint64(report.Fetches))
		}
		if report.CacheHits > 0 {
			chart.LabelAndIntValue("Cache hits", uint64(report.CacheHits))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeProblems writes an alert and the references that could not be crawled.
func (w *MarkdownWriter) writeProblems(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.Error != "":
		md.Cautionf("The crawl stopped early: %s", report.Error)
	case len(report.Blocked) > 0:
		md.Warningf(
			"%d page(s) were refused as robot traffic. Increase the delay and run the crawl again.",
			len(report.Blocked),
		)
	case len(report.Failed) > 0:
		md.Importantf("%d page(s) could not be fetched.", len(report.Failed))
	default:
		md.Tip("Every reachable page was crawled.")
	}
	md.PlainText("")

	if len(report.Failed) > 0 {
		md.H2("Failed References")
		md.PlainText("")
		rows := make([][]string, len(report.Failed))
		for i, f := range report.Failed {
			rows[i] = []string{"`" + f.Reference + "`", truncateString(f.Error, 80)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Reference", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(report.Blocked) > 0 {
		md.H2("Blocked References")
		md.PlainText("")
		md.BulletList(report.Blocked...)
		md.PlainText("")
	}

	if len(report.DeadEnds) > 0 {
		md.Details("Dead ends", strings.Join(report.DeadEnds, "\n"))
		md.PlainText("")
	}
}

// writeDiffChart writes a mermaid pie chart of the comparison.
func (w *MarkdownWriter) writeDiffChart(md *markdown.Markdown, diff *database.Diff) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("People by Status"),
		piechart.WithShowData(true),
	)

	counts := []struct {
		label string
		n     int
	}{
		{"Unchanged", len(diff.Unchanged)},
		{"Added", len(diff.Added)},
		{"Changed", len(diff.Changed)},
		{"Removed", len(diff.Removed)},
	}
	for _, c := range counts {
		if c.n > 0 {
			chart.LabelAndIntValue(c.label, uint64(c.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePeopleTable writes one row per person.
func (w *MarkdownWriter) writePeopleTable(md *markdown.Markdown, people []*model.Person) {
	rows := make([][]string, len(people))
	for i, p := range people {
		rows[i] = []string{
			displayName(p),
			"`" + p.Permalink + "`",
			orDash(p.BirthDate),
			orDash(p.DeathDate),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Name", "Permalink", "Birth", "Death"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ancestry](https://github.com/nao1215/ancestry)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
