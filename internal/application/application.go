// Package application turns a Config into the harvester, history store and sinks that
// the command line and the daemon share.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	devenv "elecharvest/dev/env"
	"elecharvest/internal/components/telemetry"
	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/sinks"
	"elecharvest/internal/store"
	"elecharvest/lib/configutil"
	"elecharvest/lib/restyutil"
)

const report_application_cookies = "application.cookies"

type App struct {
	config Config
	tel    telemetry.API
	dump   restyutil.InstrumentOutput
}

func New(config Config, tel telemetry.API) (App, error) {
	app := App{
		config: config,
		tel:    tel,
	}
	if config.Session.DumpDir != "" {
		dump, err := restyutil.NewFilesystemOutput(config.Session.DumpDir)
		if err != nil {
			return App{}, fmt.Errorf("create dump dir: %w", err)
		}
		app.dump = dump
	}
	return app, nil
}

func (a App) Config() Config {
	return a.config
}

// Cookies merges the inline cookies over the ones from the cookies file.
func (a App) Cookies() (elecweb.CookieSet, error) {
	cookies := elecweb.CookieSet{}
	if a.config.Session.CookiesFile != "" {
		path, err := devenv.ResolvePath(a.config.Session.CookiesFile)
		if err != nil {
			return nil, err
		}
		fromFile, err := configutil.ReadConfig[elecweb.CookieSet](path)
		if err != nil {
			return nil, fmt.Errorf("read cookies file: %w", err)
		}
		for name, value := range fromFile {
			cookies[name] = value
		}
	}
	for name, value := range a.config.Session.Cookies {
		cookies[name] = value
	}
	if len(cookies) == 0 {
		a.tel.ReportWarning(report_application_cookies, "no gateway cookies configured, the gateway will most likely reject every request")
	}
	return cookies, nil
}

// NewSession creates a fresh session, the wizard state lives in its cookies so every
// harvest should get its own.
func (a App) NewSession() (*elecweb.RestySession, error) {
	cookies, err := a.Cookies()
	if err != nil {
		return nil, err
	}
	return elecweb.NewRestySession(elecweb.SessionOptions{
		BaseUrl:           a.config.Harvest.BaseUrl,
		Cookies:           cookies,
		Timeout:           time.Duration(a.config.Session.TimeoutSeconds) * time.Second,
		RequestsPerSecond: a.config.Session.RequestsPerSecond,
		MimicBrowser:      a.config.Session.MimicBrowser,
		Insecure:          a.config.Session.Insecure,
		Dump:              a.dump,
	}, a.tel)
}

func (a App) NewHarvester(setup elecweb.SetupHandler) (*elecweb.Harvester, error) {
	session, err := a.NewSession()
	if err != nil {
		return nil, err
	}
	return elecweb.NewHarvester(session, setup, a.config.Harvest.HarvesterConfig(), a.tel)
}

// OpenStore opens and migrates the history database, the caller closes the *sql.DB.
func (a App) OpenStore(ctx context.Context) (store.Store, *sql.DB, error) {
	db, err := a.config.Database.OpenDB()
	if err != nil {
		return store.Store{}, nil, fmt.Errorf("open database: %w", err)
	}
	history := store.NewStore(db)
	err = history.Migrate(ctx)
	if err != nil {
		db.Close()
		return store.Store{}, nil, fmt.Errorf("migrate database: %w", err)
	}
	return history, db, nil
}

// Sinks returns the configured outputs besides the history store.
func (a App) Sinks() sinks.Multi {
	var out []sinks.Sink
	if a.config.Email != nil && a.config.Email.Server != "" {
		out = append(out, sinks.NewEmail(*a.config.Email))
	}
	if a.config.WorkbookDir != "" {
		out = append(out, sinks.NewWorkbook(a.config.WorkbookDir))
	}
	return sinks.NewMulti(a.tel, out...)
}
