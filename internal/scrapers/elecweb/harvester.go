package elecweb

import (
	"context"
	"fmt"
	"net/url"

	"elecharvest/internal/components/chrono"
	"elecharvest/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("elecharvest/elecweb")

const (
	report_client_step           = "client.step"
	report_client_navigate       = "client.navigate"
	report_client_first_use_gate = "client.first-use-gate"
	report_client_resolve_report = "client.resolve-report"
	report_client_harvest_month  = "client.harvest-month"
	report_client_harvest        = "client.harvest"
)

// PartialPolicy decides what Harvest returns when a month fails after earlier months
// were drained.
type PartialPolicy int

const (
	// DISCARD_PARTIAL returns no result at all.
	DISCARD_PARTIAL PartialPolicy = iota
	// KEEP_PARTIAL returns the months drained so far, flagged as partial, next to the error.
	KEEP_PARTIAL
)

type Config struct {
	BaseUrl          string
	Pinned           PinnedFields
	MaxPagesPerMonth int
	// UsageColumn is the index of the usage cell, 0 is a valid column and only a
	// negative value falls back to DefaultUsageColumn.
	UsageColumn int
	Partial     PartialPolicy
}

// DefaultConfig reproduces the behavior of the deployment the wire format was taken from.
func DefaultConfig() Config {
	return Config{
		BaseUrl:          DefaultBaseUrl,
		Pinned:           DefaultPinnedFields(),
		MaxPagesPerMonth: DefaultMaxPagesPerMonth,
		UsageColumn:      DefaultUsageColumn,
		Partial:          DISCARD_PARTIAL,
	}
}

// Selection is the human facing description of a room plus its query password.
type Selection struct {
	Campus     string `json:"campus" yaml:"campus"`
	Community  string `json:"community" yaml:"community"`
	Building   string `json:"building" yaml:"building"`
	Room       string `json:"room" yaml:"room"`
	Credential string `json:"credential" yaml:"credential"`
}

func (s Selection) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.Campus, s.Community, s.Building, s.Room)
}

type HarvestRequest struct {
	Selection Selection
	Window    chrono.MonthWindow
}

// Harvester drives the metering wizard over one Session. Every request depends on the
// tokens of the previous response so a Harvester must not be used concurrently.
type Harvester struct {
	session Session
	setup   SetupHandler
	base    *url.URL
	cfg     Config
	tel     telemetry.API
}

// NewHarvester creates a Harvester. `setup` may be nil, first-use prompts then fail
// with ErrSetupRequired.
func NewHarvester(session Session, setup SetupHandler, cfg Config, tel telemetry.API) (*Harvester, error) {
	if session == nil {
		return nil, fmt.Errorf("elecweb: nil session")
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = DefaultBaseUrl
	}
	if cfg.MaxPagesPerMonth <= 0 {
		cfg.MaxPagesPerMonth = DefaultMaxPagesPerMonth
	}
	if cfg.UsageColumn < 0 {
		cfg.UsageColumn = DefaultUsageColumn
	}

	base, err := url.Parse(cfg.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("elecweb: parse base url: %w", err)
	}

	return &Harvester{
		session: session,
		setup:   setup,
		base:    base,
		cfg:     cfg,
		tel:     telemetry.NewScopedAPI("elecweb", tel),
	}, nil
}

// response is a page parsed once and classified once.
type response struct {
	page *Page
	doc  *goquery.Document
	kind PageKind
}

func (r *response) state() (FormState, error) {
	return ExtractFormState(r.doc)
}

func (h *Harvester) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	return h.base.ResolveReference(ref).String(), nil
}

func (h *Harvester) receive(method, endpoint string, page *Page, err error) (*response, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, endpoint, err)
	}
	if page.Status < 200 || page.Status > 299 {
		return nil, &StatusError{Method: method, Url: endpoint, Code: page.Status}
	}
	doc, err := page.Document()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	return &response{
		page: page,
		doc:  doc,
		kind: Classify(doc, page.Body),
	}, nil
}

func (h *Harvester) get(ctx context.Context, endpoint string) (*response, error) {
	endpoint, err := h.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	page, err := h.session.Get(ctx, endpoint)
	return h.receive("GET", endpoint, page, err)
}

// step is a single postback.
type step struct {
	name  string
	label string
	// endpoint defaults to the url of the document the tokens come from.
	endpoint      string
	eventTarget   string
	eventArgument string
	fields        [][2]string
}

// postback extracts the tokens of `from`, merges them with the fields of `s`, posts the
// form once and returns the parsed response. It never retries.
func (h *Harvester) postback(ctx context.Context, from *response, s step) (*response, error) {
	h.tel.ReportDebug(report_client_step, s.name, s.label)

	state, err := from.state()
	if err != nil {
		h.tel.ReportBroken(report_client_step, s.name, err)
		return nil, stepError(s.name, s.label, err)
	}

	form := url.Values{}
	state.apply(form)
	if s.eventTarget != "" {
		form.Set(fieldEventTarget, s.eventTarget)
		form.Set(fieldEventArgument, s.eventArgument)
	}
	for _, field := range s.fields {
		form.Set(field[0], field[1])
	}

	endpoint := s.endpoint
	if endpoint == "" {
		endpoint = from.page.Url.String()
	}
	endpoint, err = h.resolve(endpoint)
	if err != nil {
		return nil, stepError(s.name, s.label, err)
	}

	page, err := h.session.PostForm(ctx, endpoint, form)
	res, err := h.receive("POST", endpoint, page, err)
	if err != nil {
		h.tel.ReportBroken(report_client_step, s.name, err)
		return nil, stepError(s.name, s.label, err)
	}
	return res, nil
}
