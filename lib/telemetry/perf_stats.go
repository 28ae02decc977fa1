package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("elecharvest.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var rssGauge, _ = meter.Int64Gauge("rss_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// PerfStats is one reading of the process' resource usage.
type PerfStats struct {
	CpuPercent  float64
	AllocatedMb int64
	RssMb       int64
	Goroutines  int64
}

// ReadPerfStats samples cpu usage over `window`, a zero window compares against the
// previous call.
func ReadPerfStats(window time.Duration) PerfStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := PerfStats{
		AllocatedMb: int64(memStats.Alloc / 1_000_000),
		Goroutines:  int64(runtime.NumGoroutine()),
	}

	cpuUsage, err := cpu.Percent(window, false)
	if err == nil && len(cpuUsage) > 0 {
		stats.CpuPercent = cpuUsage[0]
	} else if err != nil {
		slog.Warn("failed to read cpu usage", "err", err)
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		mem, err := proc.MemoryInfo()
		if err == nil {
			stats.RssMb = int64(mem.RSS / 1_000_000)
		}
	}
	return stats
}

// InstrumentPerfStats records PerfStats every 30 seconds until ctx is done.
func InstrumentPerfStats(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := ReadPerfStats(time.Second * 5)
				cpuGauge.Record(ctx, stats.CpuPercent)
				memoryGauge.Record(ctx, stats.AllocatedMb)
				rssGauge.Record(ctx, stats.RssMb)
				goroutineGauge.Record(ctx, stats.Goroutines)
			case <-ctx.Done():
				return
			}
		}
	}()
}
