package sinks

import (
	"context"
	"errors"
	"fmt"

	"elecharvest/internal/components/telemetry"
	"elecharvest/internal/scrapers/elecweb"
)

const report_sink_accept = "sink.accept"

// Sink receives every harvest result, partial results included.
type Sink interface {
	Accept(ctx context.Context, result *elecweb.HarvestResult) error
}

type SinkFunc func(ctx context.Context, result *elecweb.HarvestResult) error

func (f SinkFunc) Accept(ctx context.Context, result *elecweb.HarvestResult) error {
	return f(ctx, result)
}

// Multi hands a result to every sink in order, a failing sink does not stop the others.
type Multi struct {
	sinks []Sink
	tel   telemetry.API
}

func NewMulti(tel telemetry.API, sinks ...Sink) Multi {
	return Multi{
		sinks: sinks,
		tel:   telemetry.NewScopedAPI("sinks", tel),
	}
}

func (m Multi) Accept(ctx context.Context, result *elecweb.HarvestResult) error {
	var errs []error
	for i, sink := range m.sinks {
		err := sink.Accept(ctx, result)
		if err != nil {
			m.tel.ReportBroken(report_sink_accept, i, err)
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Len() int {
	return len(m.sinks)
}
