package extract

import (
	"strings"
)

// Date query keys used by the site in dated anchors.
const (
	yearKey  = "yg"
	monthKey = "mg"
	dayKey   = "dg"
)

// ExtractQuery returns the part of a link target after the first "?".
// The result is the page reference used to fetch a relative, e.g.
// "roglo?lang=fr;p=jean;n=dupont" yields "lang=fr;p=jean;n=dupont".
func ExtractQuery(href string) string {
	_, query, found := strings.Cut(strings.TrimSpace(href), "?")
	if !found {
		return ""
	}
	return query
}

// ParseQuery decodes a semicolon (or ampersand) delimited list of
// key=value pairs. Pieces without "=" or with an empty key are skipped.
// When a key repeats, the last value wins.
func ParseQuery(query string) map[string]string {
	params := make(map[string]string)
	pieces := strings.FieldsFunc(query, func(r rune) bool {
		return r == ';' || r == '&'
	})
	for _, piece := range pieces {
		key, value, found := strings.Cut(piece, "=")
		if !found || key == "" {
			continue
		}
		params[key] = value
	}
	return params
}

// DictToDate formats decoded date parameters.
// Year, month and day yield "YYYY-MM-DD" with month and day zero-padded;
// a year alone yields "YYYY"; anything else yields "".
func DictToDate(params map[string]string) string {
	year, hasYear := params[yearKey]
	month, hasMonth := params[monthKey]
	day, hasDay := params[dayKey]

	switch {
	case hasYear && hasMonth && hasDay:
		return year + "-" + zeroPad(month) + "-" + zeroPad(day)
	case hasYear:
		return year
	default:
		return ""
	}
}

// HrefToDate decodes the date carried by a dated anchor target.
func HrefToDate(href string) string {
	return DictToDate(ParseQuery(ExtractQuery(href)))
}

// zeroPad left-pads s with zeros to two characters.
func zeroPad(s string) string {
	if len(s) >= 2 {
		return s
	}
	return strings.Repeat("0", 2-len(s)) + s
}
