package elecweb

import (
	"context"
	"time"

	"elecharvest/internal/components/chrono"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type MonthSummary struct {
	Month   chrono.YearMonth `json:"month"`
	Records int              `json:"records"`
	Usage   float64          `json:"usage"`
	Pages   int              `json:"pages"`
}

type HarvestResult struct {
	Selection  Selection          `json:"selection"`
	Window     chrono.MonthWindow `json:"window"`
	Headers    []string           `json:"headers"`
	Records    []UsageRecord      `json:"records"`
	TotalUsage float64            `json:"total_usage"`
	Overview   [][]string         `json:"overview"`
	Months     []MonthSummary     `json:"months"`
	// UsageColumn is the index of the usage cell in Records.
	UsageColumn int       `json:"usage_column"`
	HarvestedAt time.Time `json:"harvested_at"`
	// Partial is set when a month failed and the months before it were kept.
	Partial     bool              `json:"partial"`
	FailedMonth *chrono.YearMonth `json:"failed_month,omitempty"`
}

// Harvest navigates to the usage report of the selected room and collects every
// record of every month in the window. A navigation failure returns no result, a
// month failure follows the configured PartialPolicy.
func (h *Harvester) Harvest(ctx context.Context, req HarvestRequest) (*HarvestResult, error) {
	ctx, span := tracer.Start(ctx, "Harvest")
	defer span.End()
	span.SetAttributes(
		attribute.String("selection", req.Selection.String()),
		attribute.String("window", req.Window.String()),
	)

	stage, err := h.Navigate(ctx, req.Selection)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	report, err := h.ResolveReport(ctx, stage)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &HarvestResult{
		Selection:   req.Selection,
		Window:      req.Window,
		Overview:    report.Overview,
		UsageColumn: h.cfg.UsageColumn,
		HarvestedAt: time.Now(),
	}

	current := report.landing
	var failure error
	req.Window.Each(func(ym chrono.YearMonth) bool {
		month, last, err := h.harvestMonth(ctx, current, ym)
		if err != nil {
			failed := ym
			result.FailedMonth = &failed
			failure = err
			return false
		}
		current = last

		if result.Headers == nil {
			result.Headers = month.headers
		}
		result.Records = append(result.Records, month.records...)
		result.Months = append(result.Months, MonthSummary{
			Month:   ym,
			Records: len(month.records),
			Usage:   Aggregate(month.records, h.cfg.UsageColumn),
			Pages:   month.pages,
		})
		return true
	})
	result.TotalUsage = Aggregate(result.Records, h.cfg.UsageColumn)

	if failure != nil {
		span.SetStatus(codes.Error, failure.Error())
		h.tel.ReportBroken(report_client_harvest, failure, result.FailedMonth.String())
		if h.cfg.Partial == KEEP_PARTIAL {
			result.Partial = true
			return result, failure
		}
		return nil, failure
	}

	h.tel.ReportCount(report_client_harvest, int64(len(result.Records)))
	return result, nil
}
