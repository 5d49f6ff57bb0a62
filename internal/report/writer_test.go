package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/ancestry/internal/database"
	"github.com/nao1215/ancestry/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport([]string{"p=jean;n=dupont;"})
	for range 12 {
		report.AddFetch()
	}
	report.AddCacheHit()
	report.AddPersonSaved()
	report.AddFamilySaved()
	report.AddDeadEnd("p=x;n=x;")
	report.AddBlocked("p=anne;n=leroy;")
	report.AddFailed("p=pierre;n=dupont;", errors.New("unexpected status 503"))
	report.PeopleStored = 10
	report.FamiliesStored = 4
	report.ExportFile = "export.csv"
	report.Finish()
	return report
}

func createTestDiff() *database.Diff {
	return &database.Diff{
		Unchanged: []*model.Person{{Permalink: "p=jean;n=dupont;", FirstName: "Jean", LastName: "DUPONT"}},
		Added:     []*model.Person{{Permalink: "p=paul;n=dupont;", FirstName: "Paul", BirthDate: "1876"}},
		Changed:   []*model.Person{{Permalink: "p=marie;n=martin;"}},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header, statistics and problems", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"ANCESTRY CRAWL REPORT",
			"p=jean;n=dupont;",
			"Complete with problems",
			"Pages fetched:    12",
			"People stored:    10",
			"Export file:      export.csv",
			"[!!] Failed (1)",
			"unexpected status 503",
			"[!] Blocked (1)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "Dead ends") {
			t.Error("dead ends should only be listed in verbose mode")
		}
	})

	t.Run("verbose lists dead ends", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[i] Dead ends (1)") {
			t.Error("expected dead ends in verbose output")
		}
	})

	t.Run("clean run has no problems section", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport([]string{"p=jean;n=dupont;"})
		report.Finish()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "PROBLEMS") {
			t.Error("expected no problems section")
		}
		if !strings.Contains(buf.String(), "Status:         Complete\n") {
			t.Error("expected complete status")
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Added:     1",
			"[+] Paul (p=paul;n=dupont;)",
			"[~] p=marie;n=martin; (p=marie;n=martin;)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "[=]") {
			t.Error("unchanged people should only be listed in verbose mode")
		}
	})

	t.Run("writes empty diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteDiff(&database.Diff{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No differences") {
			t.Error("expected no differences message")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero length")
		}

		output := buf.String()
		for _, want := range []string{
			"# Ancestry Crawl Report",
			"## Statistics",
			"```mermaid",
			"## Failed References",
			"## Blocked References",
			"`p=pierre;n=dupont;`",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Ancestry Crawl Comparison", "## Added", "## Changed", "1876"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "## Removed") {
			t.Error("empty sections should be omitted")
		}
	})
}

// TestJSONWriter tests the JSON report writers.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["fetches"] != float64(12) {
			t.Errorf("expected 12 fetches, got %v", decoded["fetches"])
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact output on one line")
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"roots\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", decoded.Version)
		}
		if decoded.Report != nil {
			t.Error("expected no crawl report in a diff")
		}
		if decoded.Diff == nil || decoded.Diff.Unchanged != 1 || len(decoded.Diff.Added) != 1 {
			t.Errorf("unexpected diff %+v", decoded.Diff)
		}
		if decoded.Diff.Removed == nil {
			t.Error("expected removed to be an empty list, not null")
		}
	})
}

// TestNewWriter tests format selection.
func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"text", "*report.SimpleWriter"},
		{"", "*report.SimpleWriter"},
		{"markdown", "*report.MarkdownWriter"},
		{"json", "*report.FullJSONWriter"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			w, err := NewWriter(tt.format, &bytes.Buffer{}, "dev")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := NewWriter("yaml", &bytes.Buffer{}, "dev"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *SimpleWriter:
		return "*report.SimpleWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	case *FullJSONWriter:
		return "*report.FullJSONWriter"
	default:
		return "unknown"
	}
}

// failingWriter is a Writer that always fails.
type failingWriter struct{}

func (failingWriter) Write(*model.CrawlReport) (int, error) { return 0, errors.New("disk full") }
func (failingWriter) WriteDiff(*database.Diff) (int, error) { return 0, errors.New("disk full") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := m.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if _, err := m.WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewSimpleWriter(&buf))
		if _, err := m.Write(createTestReport()); err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}
