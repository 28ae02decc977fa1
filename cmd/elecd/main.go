package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"

	"elecharvest/internal/application"
	"elecharvest/internal/components/chrono"
	"elecharvest/internal/components/telemetry"
	"elecharvest/internal/service"
	"elecharvest/lib/serviceutil"
	libtelemetry "elecharvest/lib/telemetry"

	"connectrpc.com/connect"
)

func main() {
	configPath := flag.String("config", "elec.json5", "The config file, a .local variant next to it overrides it.")
	verbose := flag.Bool("v", false, "Enable verbose logging.")
	initialHarvest := flag.Bool("harvest", false, "Trigger a harvest immediately on start.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	libtelemetry.InitSlog(*verbose)
	otel, err := libtelemetry.SetupFromEnv(ctx, "elecd")
	if err != nil {
		slog.Warn("telemetry disabled", "err", err)
	}
	defer otel.Shutdown(context.Background())
	libtelemetry.InstrumentPerfStats(ctx)

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	tel := telemetry.SlogAPI{}
	app, err := application.New(cfg, tel)
	if err != nil {
		serviceutil.Fatal("init application", err)
	}

	history, db, err := app.OpenStore(ctx)
	if err != nil {
		serviceutil.Fatal("open history", err)
	}
	defer db.Close()

	svc := service.NewHarvestService(
		func() (service.HarvestAPI, error) {
			// nobody is around to complete a first-use setup
			harvester, err := app.NewHarvester(nil)
			if err != nil {
				return nil, err
			}
			return harvester, nil
		},
		history,
		service.WithSink(app.Sinks()),
		service.WithDefaultSelection(cfg.Selection),
		service.WithTelemetryAPI(tel),
	)

	cron := chrono.NewStandardCron(tel)
	defer cron.Stop()
	err = schedule(ctx, cron, svc, cfg.Server.Schedule, *initialHarvest)
	if err != nil {
		serviceutil.Fatal("schedule harvests", err)
	}

	otelInterceptor, err := serviceutil.NewConnectOtelInterceptor()
	if err != nil {
		serviceutil.Fatal("create otel interceptor", err)
	}
	interceptors := []connect.Interceptor{otelInterceptor}
	if cfg.Server.AccessToken != "" {
		interceptors = append(interceptors, service.NewBearerAuthInterceptor(cfg.Server.AccessToken))
	} else {
		slog.Warn("no access token configured, the harvest service is open to anyone who can reach it")
	}

	mux := http.NewServeMux()
	mux.Handle(service.NewHandler(svc, connect.WithInterceptors(interceptors...)))

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, mux)
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
}
