package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"elecharvest/internal/assert"
	"elecharvest/internal/components/chrono"
	"elecharvest/internal/components/telemetry"
	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/sinks"
	"elecharvest/internal/store"

	"connectrpc.com/connect"
	"dario.cat/mergo"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("elecharvest/service")

const (
	report_service_harvest       = "service.harvest"
	report_service_sink          = "service.sink"
	report_service_store_query   = "service.store-query"
	report_service_new_harvester = "service.new-harvester"
)

// HarvestAPI is anything that can run a harvest, *elecweb.Harvester in production.
//
// note: fault injection point
type HarvestAPI interface {
	Harvest(ctx context.Context, req elecweb.HarvestRequest) (*elecweb.HarvestResult, error)
}

// NewHarvesterFunc creates a HarvestAPI with a fresh session for one harvest.
type NewHarvesterFunc = func() (HarvestAPI, error)

type HarvestService struct {
	newHarvester NewHarvesterFunc
	history      store.Store
	sink         sinks.Sink
	defaults     elecweb.Selection
	time         chrono.TimeAPI
	tel          telemetry.API

	// the metering site keeps one wizard state per session cookie
	harvestLock sync.Mutex
}

type serviceConfig struct {
	sink     sinks.Sink
	defaults elecweb.Selection
	time     chrono.TimeAPI
	tel      telemetry.API
}

type Option func(cfg *serviceConfig)

// WithSink makes every harvest also go to `sink`, the history store is always written.
func WithSink(sink sinks.Sink) Option {
	return func(cfg *serviceConfig) {
		cfg.sink = sink
	}
}

// WithDefaultSelection fills the fields a request leaves empty (typically the
// credential, which clients should not have to know).
func WithDefaultSelection(sel elecweb.Selection) Option {
	return func(cfg *serviceConfig) {
		cfg.defaults = sel
	}
}

func WithTimeAPI(time chrono.TimeAPI) Option {
	return func(cfg *serviceConfig) {
		cfg.time = time
	}
}

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func NewHarvestService(newHarvester NewHarvesterFunc, history store.Store, options ...Option) *HarvestService {
	assert.NotNil(newHarvester, "harvester constructor")

	cfg := serviceConfig{
		time: chrono.NewStandardTime(),
		tel:  telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&cfg)
	}

	return &HarvestService{
		newHarvester: newHarvester,
		history:      history,
		sink:         cfg.sink,
		defaults:     cfg.defaults,
		time:         cfg.time,
		tel:          telemetry.NewScopedAPI("service", cfg.tel),
	}
}

type HarvestRequest struct {
	Selection elecweb.Selection `json:"selection"`
	// Start and End are "YYYY-MM", both default to the current month.
	Start string `json:"start"`
	End   string `json:"end"`
}

type HarvestResponse struct {
	HarvestId int64                  `json:"harvest_id"`
	Result    *elecweb.HarvestResult `json:"result"`
	// Error is set for partial results.
	Error string `json:"error,omitempty"`
}

func (s *HarvestService) window(start, end string) (chrono.MonthWindow, error) {
	current := chrono.NewYearMonth(s.time.Now())
	window := chrono.SingleMonth(current)
	var err error
	if start != "" {
		window.Start, err = chrono.ParseYearMonth(start)
		if err != nil {
			return window, err
		}
	}
	if end != "" {
		window.End, err = chrono.ParseYearMonth(end)
		if err != nil {
			return window, err
		}
	}
	return window, nil
}

// RunHarvest runs one harvest and records it. It is shared by the rpc handler and the
// scheduler.
func (s *HarvestService) RunHarvest(ctx context.Context, req HarvestRequest) (HarvestResponse, error) {
	ctx, span := tracer.Start(ctx, "RunHarvest")
	defer span.End()

	selection := req.Selection
	err := mergo.Merge(&selection, s.defaults)
	if err != nil {
		return HarvestResponse{}, err
	}
	window, err := s.window(req.Start, req.End)
	if err != nil {
		return HarvestResponse{}, connect.NewError(connect.CodeInvalidArgument, err)
	}

	s.harvestLock.Lock()
	defer s.harvestLock.Unlock()

	harvester, err := s.newHarvester()
	if err != nil {
		s.tel.ReportBroken(report_service_new_harvester, err)
		return HarvestResponse{}, connect.NewError(connect.CodeInternal, err)
	}

	result, harvestErr := harvester.Harvest(ctx, elecweb.HarvestRequest{
		Selection: selection,
		Window:    window,
	})
	if result == nil {
		s.tel.ReportWarning(report_service_harvest, selection.String(), harvestErr)
		return HarvestResponse{}, harvestError(harvestErr)
	}

	res := HarvestResponse{Result: result}
	if harvestErr != nil {
		res.Error = harvestErr.Error()
	}

	id, err := s.history.SaveHarvest(ctx, result)
	if err != nil {
		s.tel.ReportBroken(report_service_store_query, "save harvest", err)
		return res, connect.NewError(connect.CodeInternal, err)
	}
	res.HarvestId = id

	if s.sink != nil {
		err = s.sink.Accept(ctx, result)
		if err != nil {
			s.tel.ReportBroken(report_service_sink, id, err)
		}
	}

	s.tel.ReportCount(report_service_harvest, int64(len(result.Records)))
	return res, nil
}

// harvestError maps harvester failures onto rpc codes.
func harvestError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, elecweb.ErrOptionNotFound):
		code = connect.CodeInvalidArgument
	case errors.Is(err, elecweb.ErrSetupRequired), errors.Is(err, elecweb.ErrSetupRequiredExceeded):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, elecweb.ErrUnexpectedStatus), errors.Is(err, elecweb.ErrTransport):
		code = connect.CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	}
	return connect.NewError(code, err)
}

func (s *HarvestService) Harvest(ctx context.Context, req *connect.Request[HarvestRequest]) (*connect.Response[HarvestResponse], error) {
	res, err := s.RunHarvest(ctx, *req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&res), nil
}

type ListHarvestsRequest struct {
	Room  *store.Room `json:"room,omitempty"`
	Limit int         `json:"limit"`
}

type ListHarvestsResponse struct {
	Harvests []store.HarvestSummary `json:"harvests"`
}

func (s *HarvestService) ListHarvests(ctx context.Context, req *connect.Request[ListHarvestsRequest]) (*connect.Response[ListHarvestsResponse], error) {
	harvests, err := s.history.ListHarvests(ctx, store.HarvestFilter{
		Room:  req.Msg.Room,
		Limit: req.Msg.Limit,
	})
	if err != nil {
		s.tel.ReportBroken(report_service_store_query, "list harvests", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ListHarvestsResponse{Harvests: harvests}), nil
}

type GetHarvestRequest struct {
	Id int64 `json:"id"`
}

type GetHarvestResponse struct {
	Result *elecweb.HarvestResult `json:"result"`
}

func (s *HarvestService) GetHarvest(ctx context.Context, req *connect.Request[GetHarvestRequest]) (*connect.Response[GetHarvestResponse], error) {
	result, err := s.history.GetHarvest(ctx, req.Msg.Id)
	if errors.Is(err, store.ErrHarvestNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		s.tel.ReportBroken(report_service_store_query, "get harvest", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&GetHarvestResponse{Result: result}), nil
}

type MonthlyUsageRequest struct {
	Room store.Room `json:"room"`
}

type MonthlyUsageResponse struct {
	Months []store.MonthlyUsage `json:"months"`
	Total  float64              `json:"total"`
}

func (s *HarvestService) MonthlyUsage(ctx context.Context, req *connect.Request[MonthlyUsageRequest]) (*connect.Response[MonthlyUsageResponse], error) {
	if req.Msg.Room.Room == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("room is required"))
	}
	months, err := s.history.MonthlyUsage(ctx, req.Msg.Room)
	if err != nil {
		s.tel.ReportBroken(report_service_store_query, "monthly usage", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	res := &MonthlyUsageResponse{Months: months}
	for _, month := range months {
		res.Total += month.Usage
	}
	return connect.NewResponse(res), nil
}
