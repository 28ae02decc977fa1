package elecweb

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageKind is the classification of a response after the credential submission.
type PageKind int

const (
	PAGE_UNRECOGNIZED PageKind = iota
	PAGE_FRAMED_REPORT
	PAGE_SETUP_REQUIRED
	PAGE_FLAT_REPORT
)

func (k PageKind) String() string {
	switch k {
	case PAGE_FRAMED_REPORT:
		return "framed-report"
	case PAGE_SETUP_REQUIRED:
		return "setup-required"
	case PAGE_FLAT_REPORT:
		return "flat-report"
	default:
		return "unrecognized"
	}
}

// Classify tags a response once so that later stages branch on the tag instead of
// re-scanning the body. Setup markers may sit inside scripts or alerts so they are
// searched in the raw body, and in the decoded text for pages in a legacy charset.
func Classify(doc *goquery.Document, body []byte) PageKind {
	text := doc.Text()
	for _, marker := range setupMarkers {
		if bytes.Contains(body, []byte(marker)) || strings.Contains(text, marker) {
			return PAGE_SETUP_REQUIRED
		}
	}
	// a rejected submission re-renders the wizard, often laid out in tables
	if hasNamedControl(doc, controlRoom) || hasNamedControl(doc, fieldPassword) {
		return PAGE_UNRECOGNIZED
	}
	if doc.Find("frameset").Length() > 0 {
		return PAGE_FRAMED_REPORT
	}
	if doc.Find("table").Length() > 0 || doc.Find("a[href]").Length() > 0 {
		return PAGE_FLAT_REPORT
	}
	return PAGE_UNRECOGNIZED
}

func hasNamedControl(doc *goquery.Document, name string) bool {
	return doc.Find("select, input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("name", "") == name
	}).Length() > 0
}
