package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl report in JSON format.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(report)
}

// WriteDiff outputs the comparison in JSON format.
func (w *JSONWriter) WriteDiff(diff *database.Diff) (int, error) {
	return w.writeJSON(newJSONDiff(diff))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONDiff is the JSON shape of a comparison. People are listed as full
// records so that a consumer can show what changed.
type JSONDiff struct {
	Unchanged int             `json:"unchanged"`
	Added     []*model.Person `json:"added"`
	Changed   []*model.Person `json:"changed"`
	Removed   []*model.Person `json:"removed"`
}

func newJSONDiff(diff *database.Diff) *JSONDiff {
	nonNil := func(p []*model.Person) []*model.Person {
		if p == nil {
			return []*model.Person{}
		}
		return p
	}
	return &JSONDiff{
		Unchanged: len(diff.Unchanged),
		Added:     nonNil(diff.Added),
		Changed:   nonNil(diff.Changed),
		Removed:   nonNil(diff.Removed),
	}
}

// JSONReport is a wrapper for the report with additional metadata.
//
// Design decision: We wrap the report rather than adding a version field
// to CrawlReport because the version is an output concern.
type JSONReport struct {
	// Version is the ancestry version that generated this report.
	Version string `json:"version"`

	// Report is the crawl report.
	Report *model.CrawlReport `json:"report,omitempty"`

	// Diff is the comparison of two crawls.
	Diff *JSONDiff `json:"diff,omitempty"`
}

// FullJSONWriter outputs reports with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the ancestry version string.
	version string
}

// NewFullJSONWriter creates a writer for reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the crawl report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Report: report})
}

// WriteDiff outputs the comparison wrapped with metadata.
func (w *FullJSONWriter) WriteDiff(diff *database.Diff) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Diff: newJSONDiff(diff)})
}
