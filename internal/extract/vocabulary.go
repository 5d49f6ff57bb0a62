package extract

// Vocabulary lists the localized labels used to recognize page structure.
type Vocabulary struct {
	// ParentsHeadings are the texts of the <h3> introducing the parents.
	ParentsHeadings []string

	// SpousesHeadings are the texts of the <h3> introducing spouses.
	SpousesHeadings []string

	// BirthKeywords select provenance fragments about the birth.
	BirthKeywords []string

	// DeathKeywords select provenance fragments about the death.
	DeathKeywords []string

	// MarriageKeywords select provenance fragments about the marriage.
	MarriageKeywords []string
}

// DefaultVocabulary returns the French and English labels of the site.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		ParentsHeadings:  []string{"Parents"},
		SpousesHeadings:  []string{"Spouses and children", "Mariages et enfants"},
		BirthKeywords:    []string{"naissance", "birth"},
		DeathKeywords:    []string{"décès", "death"},
		MarriageKeywords: []string{"famille", "mariage", "family", "marriage"},
	}
}
