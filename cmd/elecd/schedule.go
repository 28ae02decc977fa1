package main

import (
	"context"
	"log/slog"

	"elecharvest/internal/components/chrono"
	"elecharvest/internal/service"
)

type harvestRunner interface {
	RunHarvest(ctx context.Context, req service.HarvestRequest) (service.HarvestResponse, error)
}

// scheduledRequest covers the previous month too, so a harvest early in a month still
// completes the last one.
func scheduledRequest(now chrono.YearMonth) service.HarvestRequest {
	return service.HarvestRequest{
		Start: now.Previous().String(),
		End:   now.String(),
	}
}

func runScheduled(ctx context.Context, svc harvestRunner, time chrono.TimeAPI) {
	req := scheduledRequest(chrono.NewYearMonth(time.Now()))
	res, err := svc.RunHarvest(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "scheduled harvest", "start", req.Start, "end", req.End, "err", err)
		return
	}
	slog.InfoContext(
		ctx, "scheduled harvest",
		"id", res.HarvestId,
		"records", len(res.Result.Records),
		"usage", res.Result.TotalUsage,
		"partial", res.Result.Partial,
	)
}

func schedule(ctx context.Context, cron chrono.CronAPI, svc harvestRunner, spec string, immediately bool) error {
	clock := chrono.NewStandardTime()
	if immediately {
		slog.Info("harvesting on start")
		go runScheduled(ctx, svc, clock)
	}
	if spec == "" {
		return nil
	}
	slog.Info("scheduling harvests", "spec", spec)
	return cron.Cron(spec, func() {
		runScheduled(ctx, svc, clock)
	})
}
