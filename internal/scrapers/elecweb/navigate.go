package elecweb

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// SetupPrompt describes the first-use page the server answered with.
type SetupPrompt struct {
	Selection Selection
	// RoomValue is the option value the room resolved to.
	RoomValue string
	// Url is the absolute url of the setup form for the room.
	Url string
	// Document is the page that asked for the setup.
	Document *goquery.Document
}

// SetupHandler completes the first-use setup of a room out of band (typically a human
// in a browser). It returns once the setup is done, or an error to abort.
type SetupHandler interface {
	CompleteSetup(ctx context.Context, prompt SetupPrompt) error
}

type SetupHandlerFunc func(ctx context.Context, prompt SetupPrompt) error

func (f SetupHandlerFunc) CompleteSetup(ctx context.Context, prompt SetupPrompt) error {
	return f(ctx, prompt)
}

// Stage is a classified response reached by the navigator.
type Stage struct {
	res *response
}

func (s *Stage) Kind() PageKind {
	return s.res.kind
}

func (s *Stage) Url() *url.URL {
	return s.res.page.Url
}

func (s *Stage) Document() *goquery.Document {
	return s.res.doc
}

// selected holds the option values resolved so far.
type selected struct {
	campus    string
	community string
	building  string
	room      string
}

func (h *Harvester) cascadeFields(values selected, upTo string) [][2]string {
	pinned := h.cfg.Pinned
	switch upTo {
	case controlCampus:
		return [][2]string{
			{controlCampus, values.campus},
		}
	case controlCommunity:
		return [][2]string{
			{controlCampus, pick(pinned.Campus, values.campus)},
			{controlCommunity, values.community},
		}
	case controlBuilding:
		return [][2]string{
			{controlCampus, pick(pinned.Campus, values.campus)},
			{controlCommunity, pick(pinned.Community, values.community)},
			{controlBuilding, values.building},
		}
	default:
		return [][2]string{
			{controlCampus, pick(pinned.Campus, values.campus)},
			{controlCommunity, pick(pinned.Community, values.community)},
			{controlBuilding, pick(pinned.Building, values.building)},
			{controlRoom, values.room},
		}
	}
}

// selectLevel resolves `label` in `from` and posts it back as the change of `control`.
func (h *Harvester) selectLevel(ctx context.Context, from *response, control, label string, values *selected, assign *string) (*response, error) {
	value, err := ResolveOption(from.doc, control, label)
	if err != nil {
		h.tel.ReportBroken(report_client_navigate, control, err)
		return nil, stepError(control, label, err)
	}
	*assign = value

	return h.postback(ctx, from, step{
		name:        control,
		label:       label,
		eventTarget: control,
		fields:      h.cascadeFields(*values, control),
	})
}

// submit posts the room and the credential from a document that lists the rooms.
func (h *Harvester) submit(ctx context.Context, from *response, sel Selection, values *selected) (*response, error) {
	room, err := ResolveOption(from.doc, controlRoom, sel.Room)
	if err != nil {
		h.tel.ReportBroken(report_client_navigate, controlRoom, err)
		return nil, stepError(controlRoom, sel.Room, err)
	}
	values.room = room

	fields := h.cascadeFields(*values, controlRoom)
	fields = append(fields,
		[2]string{fieldPassword, sel.Credential},
		[2]string{fieldEnterX, "1"},
		[2]string{fieldEnterY, "1"},
	)
	return h.postback(ctx, from, step{
		name:   "submit",
		label:  sel.Room,
		fields: fields,
	})
}

// Navigate drives the cascade from the entry page to the page that follows the
// credential submission, passing the first-use gate if the server asks for it.
func (h *Harvester) Navigate(ctx context.Context, sel Selection) (*Stage, error) {
	ctx, span := tracer.Start(ctx, "Navigate")
	defer span.End()

	entry, err := h.get(ctx, "")
	if err != nil {
		h.tel.ReportBroken(report_client_navigate, "entry", err)
		return nil, stepError("entry", "", err)
	}

	values := selected{}
	res, err := h.selectLevel(ctx, entry, controlCampus, sel.Campus, &values, &values.campus)
	if err != nil {
		return nil, err
	}
	res, err = h.selectLevel(ctx, res, controlCommunity, sel.Community, &values, &values.community)
	if err != nil {
		return nil, err
	}
	res, err = h.selectLevel(ctx, res, controlBuilding, sel.Building, &values, &values.building)
	if err != nil {
		return nil, err
	}
	roomList := res

	res, err = h.submit(ctx, roomList, sel, &values)
	if err != nil {
		return nil, err
	}
	h.tel.ReportDebug(report_client_navigate, "submitted", res.kind.String())

	if res.kind == PAGE_SETUP_REQUIRED {
		res, err = h.passFirstUseGate(ctx, res, sel, &values)
		if err != nil {
			return nil, err
		}
	}
	if res.kind == PAGE_UNRECOGNIZED {
		h.tel.ReportBroken(report_client_navigate, "submit", ErrUnrecognizedPage)
		return nil, stepError("submit", sel.Room, fmt.Errorf("%w: %s", ErrUnrecognizedPage, res.page.Url))
	}

	return &Stage{res: res}, nil
}

// passFirstUseGate hands the setup page to the SetupHandler then submits the room once
// more, with tokens and options taken from the setup page. It never loops.
func (h *Harvester) passFirstUseGate(ctx context.Context, setupPage *response, sel Selection, values *selected) (*response, error) {
	if h.setup == nil {
		h.tel.ReportWarning(report_client_first_use_gate, "no handler", sel.String())
		return nil, stepError("first-use-gate", sel.Room, ErrSetupRequired)
	}

	setupUrl, err := h.resolve(fmt.Sprintf("%s?ID=%s", setupEndpoint, url.QueryEscape(values.room)))
	if err != nil {
		return nil, stepError("first-use-gate", sel.Room, err)
	}
	prompt := SetupPrompt{
		Selection: sel,
		RoomValue: values.room,
		Url:       setupUrl,
		Document:  setupPage.doc,
	}
	h.tel.ReportDebug(report_client_first_use_gate, "awaiting setup", setupUrl)
	err = h.setup.CompleteSetup(ctx, prompt)
	if err != nil {
		h.tel.ReportWarning(report_client_first_use_gate, "handler failed", err)
		return nil, stepError("first-use-gate", sel.Room, fmt.Errorf("%w: %w", ErrSetupRequired, err))
	}

	res, err := h.submit(ctx, setupPage, sel, values)
	if err != nil {
		return nil, err
	}
	if res.kind == PAGE_SETUP_REQUIRED {
		h.tel.ReportBroken(report_client_first_use_gate, ErrSetupRequiredExceeded, sel.String())
		return nil, stepError("first-use-gate", sel.Room, ErrSetupRequiredExceeded)
	}
	return res, nil
}
