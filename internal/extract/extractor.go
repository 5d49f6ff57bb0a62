package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/ancestry/internal/model"
)

// headerBoundary separates the person header from the relatives sections.
// Header rules (sex, dates, places) only look before it so that the dated
// items of a spouse are not mistaken for the person's own.
const headerBoundary = "<h3"

// Record is the result of extracting one person page.
type Record struct {
	// Person is the canonical record of the page.
	Person *model.Person

	// Parents is nil when the page has no parents section.
	Parents *ParentRefs

	// Spouse is nil when the page has no spouses section.
	Spouse *SpouseBlock
}

// ParentRefs holds the page references of the parents.
// An empty reference means that parent is not listed.
type ParentRefs struct {
	Father string
	Mother string
}

// SpouseBlock holds the first listed spouse and the marriage facts.
type SpouseBlock struct {
	// Reference is the page reference of the spouse; empty if not listed.
	Reference string

	WeddingDate  string
	WeddingPlace string

	// Source is the provenance text about the marriage or family.
	Source string
}

// Extractor extracts records from person pages.
// It is stateless apart from its vocabulary and safe for concurrent use.
type Extractor struct {
	vocabulary Vocabulary
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithVocabulary replaces the default vocabulary.
func WithVocabulary(v Vocabulary) Option {
	return func(e *Extractor) {
		e.vocabulary = v
	}
}

// New creates an Extractor with the default vocabulary.
func New(opts ...Option) *Extractor {
	e := &Extractor{vocabulary: DefaultVocabulary()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses the markup of one person page.
//
// It returns ErrBlocked when the page was served to a robot and
// ErrNotAPerson when the identity field is the placeholder or missing.
// Every other missing element degrades to an empty value.
func (e *Extractor) Extract(markup string) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	if isBlocked(doc) {
		return nil, ErrBlocked
	}

	header, _, _ := strings.Cut(markup, headerBoundary)
	head, err := goquery.NewDocumentFromReader(strings.NewReader(header))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page header: %w", err)
	}

	permalink, err := identityRule(head)
	if err != nil {
		return nil, err
	}

	person := &model.Person{
		Permalink:   permalink,
		Sex:         sexRule(head),
		FirstName:   nameRule(head, firstNameRole),
		LastName:    nameRule(head, lastNameRole),
		BirthDate:   dateRule(head.Selection, selectorDatedItem, birthDateIndex),
		DeathDate:   dateRule(head.Selection, selectorDatedItem, deathDateIndex),
		BirthPlace:  placeRule(head.Selection, selectorPlaceScript, birthPlaceIndex),
		DeathPlace:  placeRule(head.Selection, selectorPlaceScript, deathPlaceIndex),
		Note:        notesRule(doc),
		BirthSource: provenanceRule(doc, e.vocabulary.BirthKeywords),
		DeathSource: provenanceRule(doc, e.vocabulary.DeathKeywords),
		Timecode:    timecodeRule(doc),
	}

	return &Record{
		Person:  person,
		Parents: parentsRule(doc, e.vocabulary.ParentsHeadings),
		Spouse:  spouseRule(doc, e.vocabulary.SpousesHeadings, e.vocabulary.MarriageKeywords),
	}, nil
}
