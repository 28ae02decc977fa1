package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"elecharvest/internal/components/chrono"
	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/service"

	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mutex    sync.Mutex
	requests []service.HarvestRequest
}

func (r *recordingRunner) RunHarvest(ctx context.Context, req service.HarvestRequest) (service.HarvestResponse, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.requests = append(r.requests, req)
	return service.HarvestResponse{Result: &elecweb.HarvestResult{}}, nil
}

type manualCron struct {
	specs     []string
	callbacks []func()
}

func (c *manualCron) Cron(spec string, callback func()) error {
	c.specs = append(c.specs, spec)
	c.callbacks = append(c.callbacks, callback)
	return nil
}

func TestScheduledRequestAcrossYear(t *testing.T) {
	req := scheduledRequest(chrono.YearMonth{Year: 2026, Month: time.January})
	require.Equal(t, "2025-12", req.Start)
	require.Equal(t, "2026-01", req.End)

	req = scheduledRequest(chrono.YearMonth{Year: 2026, Month: time.March})
	require.Equal(t, "2026-02", req.Start)
}

func TestRunScheduled(t *testing.T) {
	runner := &recordingRunner{}
	clock := chrono.FixedTime(time.Date(2026, time.February, 3, 8, 0, 0, 0, chrono.Shanghai()))
	runScheduled(context.Background(), runner, clock)

	require.Len(t, runner.requests, 1)
	require.Equal(t, "2026-01", runner.requests[0].Start)
	require.Equal(t, "2026-02", runner.requests[0].End)
}

func TestScheduleRegistersSpec(t *testing.T) {
	cron := &manualCron{}
	err := schedule(context.Background(), cron, &recordingRunner{}, "0 3 * * *", false)
	require.NoError(t, err)
	require.Equal(t, []string{"0 3 * * *"}, cron.specs)

	cron = &manualCron{}
	err = schedule(context.Background(), cron, &recordingRunner{}, "", false)
	require.NoError(t, err)
	require.Empty(t, cron.specs)
}
