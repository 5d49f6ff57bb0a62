package report

import (
	"errors"
	"io"

	"github.com/nao1215/ancestry/internal/config"
	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for report output.
//
// Design decision: We use an interface so that the commands can pick the
// format at runtime and write to stdout or a file with the same API.
type Writer interface {
	// Write outputs the summary of a crawl run.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)

	// WriteDiff outputs the comparison of two crawls.
	WriteDiff(diff *database.Diff) (int, error)
}

// NewWriter returns the writer of the given format: text, markdown or json.
// version is embedded in the JSON output.
func NewWriter(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case config.ReportFormatText, "":
		return NewSimpleWriter(output), nil
	case config.ReportFormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.ReportFormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	default:
		return nil, ErrUnknownFormat
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteDiff outputs the comparison to all configured Writers.
func (m *MultiWriter) WriteDiff(diff *database.Diff) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteDiff(diff)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// displayName returns "First LAST" or the permalink when both are empty.
func displayName(p *model.Person) string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.Permalink
	}
	return name
}

// status summarizes the outcome of a run in a few words.
func status(report *model.CrawlReport) string {
	switch {
	case report.Error != "":
		return "ERROR - " + report.Error
	case report.HasProblems():
		return "Complete with problems"
	default:
		return "Complete"
	}
}
