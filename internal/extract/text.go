package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// soleString returns the text of a node whose content is exactly one
// string, following single-child chains the way "li > b > text" pages
// nest it. Nodes with several children or none yield ok == false.
func soleString(n *html.Node) (string, bool) {
	for {
		child := n.FirstChild
		if child == nil || child.NextSibling != nil {
			return "", false
		}
		switch child.Type {
		case html.TextNode:
			return child.Data, true
		case html.ElementNode:
			n = child
		default:
			return "", false
		}
	}
}

// lineFragments splits the text content of n on <br> elements.
// Fragments are trimmed and empty ones are dropped.
func lineFragments(n *html.Node) []string {
	var (
		fragments []string
		current   strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			fragments = append(fragments, s)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch {
		case cur.Type == html.TextNode:
			current.WriteString(cur.Data)
		case cur.Type == html.ElementNode && cur.Data == "br":
			flush()
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	flush()

	return fragments
}

// followingElement returns the first element named tag that comes after
// start in document order, skipping the descendants of start.
func followingElement(root, start *html.Node, tag string) *html.Node {
	var (
		found  *html.Node
		passed bool
	)

	var walk func(*html.Node) bool
	walk = func(cur *html.Node) bool {
		if cur == start {
			passed = true
			return false
		}
		if passed && cur.Type == html.ElementNode && cur.Data == tag {
			found = cur
			return true
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(root)
	return found
}

// hasAttr reports whether the element carries the attribute key.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// firstQuoted returns the first double-quote delimited substring of s.
// Place names are embedded in script fragments such as
// `document.write("Paris, France")`.
func firstQuoted(s string) string {
	parts := strings.Split(strings.TrimSpace(s), `"`)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// foldText normalizes text for keyword comparison.
// Pages mix precomposed and decomposed accents ("décès" vs "décès"),
// so text is NFC normalized before case folding.
func foldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// containsAny reports whether text contains one of the keywords,
// ignoring case and Unicode composition.
func containsAny(text string, keywords []string) bool {
	folded := foldText(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(folded, foldText(kw)) {
			return true
		}
	}
	return false
}

// equalsAny reports whether the trimmed text equals one of the labels,
// ignoring case and Unicode composition.
func equalsAny(text string, labels []string) bool {
	folded := foldText(strings.TrimSpace(text))
	for _, label := range labels {
		if folded == foldText(strings.TrimSpace(label)) {
			return true
		}
	}
	return false
}
