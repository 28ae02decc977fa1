package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"elecharvest/internal/components/chrono"
	"elecharvest/internal/components/telemetry"
	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/sinks"
	"elecharvest/internal/store"
	configlibsql "elecharvest/lib/configutil/libsql"
	"elecharvest/lib/serviceutil"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

type stubHarvester struct {
	requests []elecweb.HarvestRequest
	err      error
	partial  bool
}

func (s *stubHarvester) Harvest(_ context.Context, req elecweb.HarvestRequest) (*elecweb.HarvestResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil && !s.partial {
		return nil, s.err
	}

	result := &elecweb.HarvestResult{
		Selection:   req.Selection,
		Window:      req.Window,
		Headers:     []string{"日期", "起始读数", "结束读数", "用电量", "备注"},
		UsageColumn: elecweb.DefaultUsageColumn,
		HarvestedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, chrono.Shanghai()),
	}
	req.Window.Each(func(ym chrono.YearMonth) bool {
		result.Records = append(result.Records, elecweb.UsageRecord{
			Year:  ym.Year,
			Month: ym.Month,
			Cells: []string{ym.String() + "-01", "0", "2.5", "2.5", ""},
		})
		result.Months = append(result.Months, elecweb.MonthSummary{Month: ym, Records: 1, Usage: 2.5, Pages: 1})
		return true
	})
	result.TotalUsage = elecweb.Aggregate(result.Records, elecweb.DefaultUsageColumn)
	if s.partial {
		result.Partial = true
	}
	return result, s.err
}

type testEnv struct {
	client    Client
	harvester *stubHarvester
	sinkCalls int
}

func newTestEnv(t testing.TB, token string) *testEnv {
	return newTestEnvWithTokens(t, token, token)
}

func newTestEnvWithTokens(t testing.TB, serverToken, clientToken string) *testEnv {
	db, err := configlibsql.Struct{File: ":memory:"}.OpenDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	history := store.NewStore(db)
	require.NoError(t, history.Migrate(context.Background()))

	env := &testEnv{harvester: &stubHarvester{}}
	svc := NewHarvestService(
		func() (HarvestAPI, error) {
			return env.harvester, nil
		},
		history,
		WithDefaultSelection(elecweb.Selection{Campus: "校本部", Credential: "123456"}),
		WithTimeAPI(chrono.FixedTime(time.Date(2026, 2, 15, 12, 0, 0, 0, chrono.Shanghai()))),
		WithTelemetryAPI(&telemetry.RecordingAPI{}),
		WithSink(sinks.SinkFunc(func(context.Context, *elecweb.HarvestResult) error {
			env.sinkCalls++
			return nil
		})),
	)

	path, handler := NewHandler(svc, connect.WithInterceptors(NewBearerAuthInterceptor(serverToken)))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env.client = NewClient(
		server.Client(),
		server.URL,
		connect.WithInterceptors(serviceutil.ProvideAccessTokenInterceptor(clientToken)),
	)
	return env
}

var testRoom = elecweb.Selection{Community: "D区", Building: "1", Room: "101"}

func TestHarvestRoundTrip(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	res, err := env.client.Harvest(ctx, &HarvestRequest{Selection: testRoom, Start: "2025-11", End: "2026-01"})
	require.NoError(t, err)
	require.NotZero(t, res.HarvestId)
	require.Len(t, res.Result.Records, 3)
	require.InDelta(t, 7.5, res.Result.TotalUsage, 1e-9)
	require.Empty(t, res.Error)
	require.Equal(t, 1, env.sinkCalls)

	sent := env.harvester.requests[0]
	require.Equal(t, "校本部", sent.Selection.Campus)
	require.Equal(t, "123456", sent.Selection.Credential)
	require.Equal(t, 3, sent.Window.Len())

	stored, err := env.client.GetHarvest(ctx, &GetHarvestRequest{Id: res.HarvestId})
	require.NoError(t, err)
	require.Equal(t, res.Result.Records, stored.Result.Records)
	require.Empty(t, stored.Result.Selection.Credential)

	list, err := env.client.ListHarvests(ctx, &ListHarvestsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Harvests, 1)

	usage, err := env.client.MonthlyUsage(ctx, &MonthlyUsageRequest{Room: store.RoomOf(sent.Selection)})
	require.NoError(t, err)
	require.Len(t, usage.Months, 3)
	require.InDelta(t, 7.5, usage.Total, 1e-9)
}

func TestHarvestDefaultWindow(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.client.Harvest(context.Background(), &HarvestRequest{Selection: testRoom})
	require.NoError(t, err)
	require.Equal(t, chrono.SingleMonth(chrono.YearMonth{Year: 2026, Month: time.February}), env.harvester.requests[0].Window)
}

func TestHarvestErrors(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code connect.Code
	}{
		{name: "option", err: &elecweb.OptionError{Control: "ddlFangJian", Label: "999"}, code: connect.CodeInvalidArgument},
		{name: "setup", err: elecweb.ErrSetupRequiredExceeded, code: connect.CodeFailedPrecondition},
		{name: "status", err: &elecweb.StatusError{Method: "GET", Url: "x", Code: 403}, code: connect.CodeUnavailable},
		{name: "other", err: elecweb.ErrTokenMissing, code: connect.CodeInternal},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			env.harvester.err = test.err

			_, err := env.client.Harvest(context.Background(), &HarvestRequest{Selection: testRoom})
			require.Error(t, err)
			require.Equal(t, test.code, connect.CodeOf(err))
			require.Equal(t, 0, env.sinkCalls)
		})
	}
}

func TestHarvestPartial(t *testing.T) {
	env := newTestEnv(t, "")
	env.harvester.err = errors.New("month failed")
	env.harvester.partial = true

	res, err := env.client.Harvest(context.Background(), &HarvestRequest{Selection: testRoom, Start: "2025-12", End: "2026-01"})
	require.NoError(t, err)
	require.True(t, res.Result.Partial)
	require.Equal(t, "month failed", res.Error)
	require.NotZero(t, res.HarvestId)
}

func TestHarvestInvalidWindow(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.client.Harvest(context.Background(), &HarvestRequest{Selection: testRoom, Start: "2025-13"})
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	require.Empty(t, env.harvester.requests)
}

func TestGetHarvestNotFound(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.client.GetHarvest(context.Background(), &GetHarvestRequest{Id: 42})
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestBearerAuth(t *testing.T) {
	testCases := []struct {
		name        string
		serverToken string
		clientToken string
		code        connect.Code
	}{
		{name: "disabled", serverToken: "", clientToken: "", code: 0},
		{name: "matching", serverToken: "s3cret", clientToken: "s3cret", code: 0},
		{name: "missing", serverToken: "s3cret", clientToken: "", code: connect.CodeUnauthenticated},
		{name: "wrong", serverToken: "s3cret", clientToken: "guess", code: connect.CodeUnauthenticated},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnvWithTokens(t, test.serverToken, test.clientToken)
			_, err := env.client.ListHarvests(context.Background(), &ListHarvestsRequest{})
			if test.code == 0 {
				require.NoError(t, err)
				return
			}
			require.Equal(t, test.code, connect.CodeOf(err))
		})
	}
}
