package config

import "time"

// SiteConfig holds the settings of the genealogy site being crawled.
type SiteConfig struct {
	// BaseURL is the address prefix references are appended to.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Delay is waited before every request (e.g. "2s").
	Delay time.Duration `yaml:"delay,omitempty"`

	// UserAgent overrides the browser-like default.
	UserAgent string `yaml:"userAgent,omitempty"`

	// AcceptLanguage overrides the Accept-Language header.
	AcceptLanguage string `yaml:"acceptLanguage,omitempty"`

	// Cookie is an HTTP cookie sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Proxy is an optional SOCKS5 proxy address ("[user:password@]host:port").
	Proxy string `yaml:"proxy,omitempty"`

	// ProvenanceLabel is the attribute type written by the export.
	ProvenanceLabel string `yaml:"provenanceLabel,omitempty"`
}

// Vocabulary lists the localized words used to recognize page structure.
// The site serves French and English pages, so every list accepts both.
type Vocabulary struct {
	// ParentsHeadings are the texts of the heading introducing the parents.
	ParentsHeadings []string `yaml:"parentsHeadings,omitempty"`

	// SpousesHeadings are the texts of the heading introducing spouses.
	SpousesHeadings []string `yaml:"spousesHeadings,omitempty"`

	// BirthKeywords select provenance fragments about the birth.
	BirthKeywords []string `yaml:"birthKeywords,omitempty"`

	// DeathKeywords select provenance fragments about the death.
	DeathKeywords []string `yaml:"deathKeywords,omitempty"`

	// MarriageKeywords select provenance fragments about the marriage.
	MarriageKeywords []string `yaml:"marriageKeywords,omitempty"`
}

// DefaultVocabulary returns the French and English vocabulary of the site.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		ParentsHeadings:  []string{"Parents"},
		SpousesHeadings:  []string{"Spouses and children", "Mariages et enfants"},
		BirthKeywords:    []string{"naissance", "birth"},
		DeathKeywords:    []string{"décès", "death"},
		MarriageKeywords: []string{"famille", "mariage", "family", "marriage"},
	}
}

// Merge returns v with every non-empty list of other replacing its own.
func (v Vocabulary) Merge(other Vocabulary) Vocabulary {
	if len(other.ParentsHeadings) > 0 {
		v.ParentsHeadings = other.ParentsHeadings
	}
	if len(other.SpousesHeadings) > 0 {
		v.SpousesHeadings = other.SpousesHeadings
	}
	if len(other.BirthKeywords) > 0 {
		v.BirthKeywords = other.BirthKeywords
	}
	if len(other.DeathKeywords) > 0 {
		v.DeathKeywords = other.DeathKeywords
	}
	if len(other.MarriageKeywords) > 0 {
		v.MarriageKeywords = other.MarriageKeywords
	}
	return v
}

// File represents the structure of the .ancestry configuration file.
type File struct {
	// Site holds the settings of the crawled site.
	Site SiteConfig `yaml:"site,omitempty"`

	// Vocabulary overrides the localized words of the default vocabulary.
	Vocabulary Vocabulary `yaml:"vocabulary,omitempty"`
}
