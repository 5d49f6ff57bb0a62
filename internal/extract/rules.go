package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/ancestry/internal/model"
)

// Selectors of the person page.
const (
	selectorRobots       = `head meta[name="robots"]`
	selectorIdentity     = "h1 input"
	selectorSexMarker    = "h1 img[alt]"
	selectorNameAnchor   = "h1 a[href]"
	selectorDatedItem    = "ul li a.date"
	selectorPlaceScript  = "ul li script"
	selectorListDate     = "li a.date"
	selectorListPlace    = "li script"
	selectorNoteItem     = "body ul li"
	selectorNoteDetail   = "body dl dd"
	selectorProvenance   = "body p em"
	selectorTimecode     = "tr > td > span"
	selectorSectionTitle = "h3"
)

// Positional assumptions about the page layout.
const (
	// Identity field: "first/last/occurrence".
	identityFirstName  = 0
	identityLastName   = 1
	identityOccurrence = 2

	// Dated items and place scripts of the header: birth first, then death.
	birthDateIndex  = 0
	deathDateIndex  = 1
	birthPlaceIndex = 0
	deathPlaceIndex = 1

	// Parents section: father first, then mother.
	fatherIndex = 0
	motherIndex = 1
)

// placeholderIdentity marks an unknown person on the site.
const placeholderIdentity = "x x"

// placeholderName is the name the site gives to unknown persons.
const placeholderName = "x"

// dateMarkerAttr marks list items that carry a date rather than a note.
const dateMarkerAttr = "date"

// nameRole is the value of the "m" query key of a name search anchor.
type nameRole string

const (
	firstNameRole nameRole = "P"
	lastNameRole  nameRole = "N"
)

// searchModeKey is the query key naming the search mode of an anchor.
const searchModeKey = "m"

// isBlocked reports whether the page was served to a flagged robot.
func isBlocked(doc *goquery.Document) bool {
	return doc.Find(selectorRobots).Length() > 0
}

// identityRule builds the permalink from the identity input element.
func identityRule(doc *goquery.Document) (string, error) {
	value, ok := doc.Find(selectorIdentity).First().Attr("value")
	if !ok {
		return "", ErrNotAPerson
	}

	value = strings.NewReplacer("[", "", "]", "").Replace(strings.TrimSpace(value))
	tokens := strings.Split(value, "/")

	if tokens[len(tokens)-1] == placeholderIdentity {
		return "", ErrNotAPerson
	}
	if len(tokens) <= identityLastName {
		return "", ErrNotAPerson
	}
	if tokens[identityFirstName] == placeholderName && tokens[identityLastName] == placeholderName {
		return "", ErrNotAPerson
	}

	var occurrence string
	if len(tokens) > identityOccurrence {
		occurrence = tokens[identityOccurrence]
	}

	return model.Permalink(tokens[identityFirstName], tokens[identityLastName], occurrence), nil
}

// sexRule returns the first H or F marker of the heading images.
func sexRule(doc *goquery.Document) model.Sex {
	sex := model.SexUnknown
	doc.Find(selectorSexMarker).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt, _ := img.Attr("alt")
		if s := model.ParseSex(alt); s.IsKnown() {
			sex = s
			return false
		}
		return true
	})
	return sex
}

// nameRule returns the text of the first heading anchor whose target is a
// search of the given role.
func nameRule(doc *goquery.Document, role nameRole) string {
	var name string
	doc.Find(selectorNameAnchor).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if ParseQuery(ExtractQuery(href))[searchModeKey] == string(role) {
			name = strings.TrimSpace(a.Text())
			return false
		}
		return true
	})
	return name
}

// dateRule decodes the index-th dated anchor matched by selector below sel.
func dateRule(sel *goquery.Selection, selector string, index int) string {
	href, ok := sel.Find(selector).Eq(index).Attr("href")
	if !ok {
		return ""
	}
	return HrefToDate(href)
}

// placeRule reads the quoted place of the index-th script matched by
// selector below sel.
func placeRule(sel *goquery.Selection, selector string, index int) string {
	script := sel.Find(selector).Eq(index)
	if script.Length() == 0 {
		return ""
	}
	return firstQuoted(script.Text())
}

// notesRule joins the plain list items and the definition details.
func notesRule(doc *goquery.Document) string {
	var notes []string

	doc.Find(selectorNoteItem).Each(func(_ int, li *goquery.Selection) {
		node := li.Get(0)
		if hasAttr(node, dateMarkerAttr) {
			return
		}
		if s, ok := soleString(node); ok && s != "" {
			notes = append(notes, s)
		}
	})

	doc.Find(selectorNoteDetail).Each(func(_ int, dd *goquery.Selection) {
		if s := strings.TrimSpace(dd.Text()); s != "" {
			notes = append(notes, s)
		}
	})

	return strings.Join(notes, "\r\n")
}

// provenanceRule joins the emphasized source lines mentioning a keyword.
func provenanceRule(doc *goquery.Document, keywords []string) string {
	var lines []string
	doc.Find(selectorProvenance).Each(func(_ int, em *goquery.Selection) {
		for _, fragment := range lineFragments(em.Get(0)) {
			if containsAny(fragment, keywords) {
				lines = append(lines, fragment)
			}
		}
	})
	return strings.Join(lines, "\r\n")
}

// timecodeRule reads the revision stamp of the page footer, dropping its
// leading label.
func timecodeRule(doc *goquery.Document) string {
	span := doc.Find(selectorTimecode).Last()
	if span.Length() == 0 {
		return ""
	}
	fields := strings.Fields(span.Text())
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// sectionList returns the list following the first section heading that
// matches one of the labels, or nil if there is none.
func sectionList(doc *goquery.Document, headings []string) *goquery.Selection {
	heading := doc.Find(selectorSectionTitle).FilterFunction(func(_ int, h *goquery.Selection) bool {
		return equalsAny(h.Text(), headings)
	}).First()
	if heading.Length() == 0 {
		return nil
	}

	ul := followingElement(doc.Get(0), heading.Get(0), "ul")
	if ul == nil {
		return nil
	}
	return doc.FindNodes(ul)
}

// parentsRule reads the father and mother references.
func parentsRule(doc *goquery.Document, headings []string) *ParentRefs {
	list := sectionList(doc, headings)
	if list == nil {
		return nil
	}

	items := list.Find("li")
	reference := func(index int) string {
		href, _ := items.Eq(index).Find("a[href]").First().Attr("href")
		return ExtractQuery(href)
	}

	return &ParentRefs{
		Father: reference(fatherIndex),
		Mother: reference(motherIndex),
	}
}

// spouseRule reads the first spouse reference and the marriage facts.
func spouseRule(doc *goquery.Document, headings, marriageKeywords []string) *SpouseBlock {
	list := sectionList(doc, headings)
	if list == nil {
		return nil
	}

	href, _ := list.Find("b").First().Find("a[href]").First().Attr("href")

	return &SpouseBlock{
		Reference:    ExtractQuery(href),
		WeddingDate:  dateRule(list, selectorListDate, 0),
		WeddingPlace: placeRule(list, selectorListPlace, 0),
		Source:       provenanceRule(doc, marriageKeywords),
	}
}
