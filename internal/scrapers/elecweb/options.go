package elecweb

import (
	"strings"

	"elecharvest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

type Option struct {
	// Label is the trimmed display text.
	Label string
	// Value is posted back verbatim, padding included.
	Value string
}

// OptionMap is the option list of one control in one response, in document order.
type OptionMap []Option

// OptionsOf reads the options of the <select> named `control`, ok is false when the
// document has no such control.
func OptionsOf(doc *goquery.Document, control string) (OptionMap, bool) {
	sel := doc.Find("select").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("name", "") == control
	}).First()
	if sel.Length() == 0 {
		return nil, false
	}

	var options OptionMap
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		label := strings.TrimSpace(opt.Text())
		// browsers submit the text of an option that has no value attribute
		value, exists := opt.Attr("value")
		if !exists {
			value = label
		}
		options = append(options, Option{Label: label, Value: value})
	})
	return options, true
}

// Lookup returns the value of the first option whose label equals the trimmed `label`.
func (m OptionMap) Lookup(label string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, opt := range m {
		if opt.Label == label {
			return opt.Value, true
		}
	}
	return "", false
}

// Closest returns the label most similar to `label`, or "" for an empty map.
func (m OptionMap) Closest(label string) string {
	target := textutil.NormalizeName(label)
	best := ""
	bestScore := -1.0
	for _, opt := range m {
		score := matchr.JaroWinkler(textutil.NormalizeName(opt.Label), target, false)
		if score > bestScore {
			best = opt.Label
			bestScore = score
		}
	}
	return best
}

func (m OptionMap) Labels() []string {
	labels := make([]string, len(m))
	for i, opt := range m {
		labels[i] = opt.Label
	}
	return labels
}

// ResolveOption maps a display label to the value the server expects for `control`.
// Matching is exact after trimming, the first match wins.
func ResolveOption(doc *goquery.Document, control, label string) (string, error) {
	options, ok := OptionsOf(doc, control)
	if !ok {
		return "", &OptionError{Control: control, Label: label}
	}
	value, ok := options.Lookup(label)
	if !ok {
		return "", &OptionError{
			Control: control,
			Label:   label,
			Closest: options.Closest(label),
		}
	}
	return value, nil
}
