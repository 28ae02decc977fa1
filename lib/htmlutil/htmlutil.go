package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// CellText is the text of a selection with surrounding whitespace (including
// non-breaking spaces left by `&nbsp;`) removed.
func CellText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// RowTexts returns the CellText of every element of `cells`, in document order.
func RowTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		out = append(out, CellText(cell))
	})
	return out
}

type Anchor struct {
	Name string
	// Href is the attribute exactly as written in the document.
	Href string
	// Url is Href resolved against the base url, nil if Href cannot be parsed.
	Url *url.URL
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// GetAnchors collects every anchor with an href in `sel`.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href, ok := "", false
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				ok = true
				break
			}
		}
		if !ok {
			continue
		}

		name := GetText(n)
		name = removeNonPrintable(name)
		name = strings.Trim(name, " \t\n")
		name = innerWhitespace.ReplaceAllString(name, " ")

		anchor := Anchor{Name: name, Href: href}
		link, err := url.Parse(href)
		if err == nil {
			if base != nil {
				link = base.ResolveReference(link)
			}
			anchor.Url = link
		}
		anchors = append(anchors, anchor)
	}
	return anchors
}
