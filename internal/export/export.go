package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/ancestry/internal/model"
)

// Default values of the provenance attribute.
const (
	defaultBaseURL = "http://roglo.eu/roglo?"
	defaultLabel   = "Roglo"
)

// Section headers.
var (
	personHeader = []string{
		"person", "grampsid", "firstname", "lastname", "gender", "note",
		"birthdate", "birthplace", "birthsource",
		"deathdate", "deathplace", "deathsource",
		"attributetype", "attributevalue",
	}
	marriageHeader = []string{"marriage", "husband", "wife", "date", "place", "source"}
	familyHeader   = []string{"family", "child"}
)

// Source provides the stored records. *database.TreeDB implements it.
type Source interface {
	ListPeople(ctx context.Context) ([]*model.Person, error)
	ListFamilies(ctx context.Context) ([]*model.Family, error)
}

// Summary counts the rows of each section.
type Summary struct {
	People    int
	Marriages int
	Children  int
}

// Exporter writes Gramps CSV files.
type Exporter struct {
	baseURL string
	label   string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithBaseURL sets the address prefix of the provenance attribute value.
func WithBaseURL(baseURL string) Option {
	return func(e *Exporter) {
		e.baseURL = baseURL
	}
}

// WithLabel sets the provenance attribute type written for every person.
func WithLabel(label string) Option {
	return func(e *Exporter) {
		e.label = label
	}
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		baseURL: defaultBaseURL,
		label:   defaultLabel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Write exports every record of src to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, src Source) (*Summary, error) {
	people, err := src.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	families, err := src.ListFamilies(ctx)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	summary := &Summary{}

	section := func(header []string, rows [][]string) error {
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return nil
	}

	personRows := make([][]string, 0, len(people))
	childRows := make([][]string, 0, len(people))
	for _, p := range people {
		personRows = append(personRows, e.personRow(p))
		childRows = append(childRows, []string{p.FamilyID, p.Permalink})
	}
	marriageRows := make([][]string, 0, len(families))
	for _, f := range families {
		marriageRows = append(marriageRows, []string{
			f.ID, f.FatherPermalink, f.MotherPermalink, f.WeddingDate, f.WeddingPlace, f.Source,
		})
	}

	if err := section(personHeader, personRows); err != nil {
		return nil, fmt.Errorf("failed to write people: %w", err)
	}
	summary.People = len(personRows)

	// csv.Writer cannot emit an empty line, so the separators go to the
	// buffered writer underneath once the CSV writer is flushed.
	if _, err := bw.WriteString("\n"); err != nil {
		return nil, err
	}
	if err := section(marriageHeader, marriageRows); err != nil {
		return nil, fmt.Errorf("failed to write marriages: %w", err)
	}
	summary.Marriages = len(marriageRows)

	if _, err := bw.WriteString("\n"); err != nil {
		return nil, err
	}
	if err := section(familyHeader, childRows); err != nil {
		return nil, fmt.Errorf("failed to write families: %w", err)
	}
	summary.Children = len(childRows)

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	return summary, nil
}

// WriteFile exports every record of src to the file at path.
func (e *Exporter) WriteFile(ctx context.Context, path string, src Source) (*Summary, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	summary, err := e.Write(ctx, f, src)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close export file: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (e *Exporter) personRow(p *model.Person) []string {
	return []string{
		p.Permalink,
		p.ExternalID,
		p.FirstName,
		p.LastName,
		p.Sex.GenderToken(),
		p.Note,
		p.BirthDate,
		p.BirthPlace,
		p.BirthSource,
		p.DeathDate,
		p.DeathPlace,
		p.DeathSource,
		e.label,
		e.baseURL + p.Permalink,
	}
}
