package elecweb

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// FormState holds the two anti-tamper tokens every postback must replay. It is
// extracted from each response and passed along explicitly, never cached.
type FormState struct {
	ViewState       string
	EventValidation string
}

// ExtractFormState returns the hidden __VIEWSTATE and __EVENTVALIDATION values of a
// document verbatim. A missing input (or one without a value attribute) is
// ErrTokenMissing, an empty value is not.
func ExtractFormState(doc *goquery.Document) (FormState, error) {
	viewState, ok := inputValue(doc.Selection, fieldViewState)
	if !ok {
		return FormState{}, fmt.Errorf("%w: %s", ErrTokenMissing, fieldViewState)
	}
	eventValidation, ok := inputValue(doc.Selection, fieldEventValidation)
	if !ok {
		return FormState{}, fmt.Errorf("%w: %s", ErrTokenMissing, fieldEventValidation)
	}
	return FormState{
		ViewState:       viewState,
		EventValidation: eventValidation,
	}, nil
}

func (s FormState) apply(form url.Values) {
	form.Set(fieldViewState, s.ViewState)
	form.Set(fieldEventValidation, s.EventValidation)
}

// names are compared literally since asp.net control names may contain `$` and `:`
func inputValue(sel *goquery.Selection, name string) (string, bool) {
	input := sel.Find("input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("name", "") == name
	}).First()
	if input.Length() == 0 {
		return "", false
	}
	return input.Attr("value")
}
