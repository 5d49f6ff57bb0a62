package model

import (
	"fmt"
	"strings"
)

// Sex is the sex recorded on a person page.
// The source site uses the French initials: H (homme) and F (femme).
type Sex string

const (
	// SexMale is recorded as "H" on the source site.
	SexMale Sex = "H"

	// SexFemale is recorded as "F" on the source site.
	SexFemale Sex = "F"

	// SexUnknown is used when the page has no sex marker.
	SexUnknown Sex = ""
)

// ParseSex converts a raw marker into a Sex.
// Anything other than "H" or "F" yields SexUnknown.
func ParseSex(raw string) Sex {
	switch Sex(strings.TrimSpace(raw)) {
	case SexMale:
		return SexMale
	case SexFemale:
		return SexFemale
	default:
		return SexUnknown
	}
}

// IsKnown reports whether the sex is male or female.
func (s Sex) IsKnown() bool {
	return s == SexMale || s == SexFemale
}

// GenderToken returns the gender token used by the interchange export.
func (s Sex) GenderToken() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return ""
	}
}

// Person is one person record scraped from a genealogy page.
//
// Permalink is the sole identity key. Re-discovering the same person
// replaces the previously stored record rather than duplicating it.
type Person struct {
	// Permalink is derived from first name, last name and occurrence number,
	// e.g. "p=jean;n=dupont;" or "p=jean;n=dupont;oc=2".
	Permalink string `json:"permalink"`

	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Sex       Sex    `json:"sex"`

	// BirthDate and DeathDate are "YYYY-MM-DD", "YYYY" or empty.
	// They are not validated as calendar dates.
	BirthDate   string `json:"birthdate"`
	BirthPlace  string `json:"birthplace"`
	BirthSource string `json:"birthsource"`
	DeathDate   string `json:"deathdate"`
	DeathPlace  string `json:"deathplace"`
	DeathSource string `json:"deathsource"`

	// Note holds free text annotations joined with CRLF.
	Note string `json:"note"`

	// FamilyID references the Family of this person's parents.
	// Empty when the parents are unknown.
	FamilyID string `json:"family_id"`

	// Timecode is the revision stamp scraped from the page footer.
	Timecode string `json:"timecode"`

	// Source is the address of the page the record was scraped from.
	Source string `json:"source"`

	// ExternalID is a caller-supplied cross-reference identifier.
	ExternalID string `json:"external_id"`
}

// Permalink composes the identity key of a person from the positional
// identity tokens of a page. The occurrence number is appended only when
// it is present and not "0".
func Permalink(firstName, lastName, occurrence string) string {
	permalink := fmt.Sprintf("p=%s;n=%s;", firstName, lastName)
	if occurrence != "" && occurrence != "0" {
		permalink += "oc=" + occurrence
	}
	return permalink
}

// String returns a one-line description used in debug logs.
func (p *Person) String() string {
	return strings.Join([]string{
		string(p.Sex), p.FirstName, p.LastName, p.Permalink,
		p.BirthDate, p.BirthPlace, p.DeathDate, p.DeathPlace,
	}, " ")
}
