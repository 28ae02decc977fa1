package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	jsoniter "github.com/json-iterator/go"
)

const (
	ServiceName = "elecharvest.v1.HarvestService"

	HarvestProcedure      = "/" + ServiceName + "/Harvest"
	ListHarvestsProcedure = "/" + ServiceName + "/ListHarvests"
	GetHarvestProcedure   = "/" + ServiceName + "/GetHarvest"
	MonthlyUsageProcedure = "/" + ServiceName + "/MonthlyUsage"
)

// jsonCodec replaces connect's protojson codec, the messages of this service are plain
// structs.
type jsonCodec struct {
	api jsoniter.API
}

func newJsonCodec() jsonCodec {
	return jsonCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (jsonCodec) Name() string {
	return "json"
}

func (c jsonCodec) Marshal(message any) ([]byte, error) {
	return c.api.Marshal(message)
}

func (c jsonCodec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	return c.api.Unmarshal(data, message)
}

type authInterceptor = func(ctx context.Context, token string) (context.Context, error)

type genericAuthInterceptor struct {
	fn authInterceptor
}

func newGenericAuthInterceptor(fn authInterceptor) genericAuthInterceptor {
	return genericAuthInterceptor{fn: fn}
}

func (a genericAuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		var err error
		ctx, err = a.fn(ctx, req.Header().Get("Authorization"))
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (a genericAuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (a genericAuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, shc connect.StreamingHandlerConn) error {
		var err error
		ctx, err = a.fn(ctx, shc.RequestHeader().Get("Authorization"))
		if err != nil {
			return err
		}
		return next(ctx, shc)
	}
}

// NewBearerAuthInterceptor rejects calls that do not carry `Bearer <token>`, an empty
// token lets everything through.
func NewBearerAuthInterceptor(token string) connect.Interceptor {
	return newGenericAuthInterceptor(func(ctx context.Context, header string) (context.Context, error) {
		if token == "" {
			return ctx, nil
		}
		given, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			return ctx, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("Unauthorized"))
		}
		return ctx, nil
	})
}

// NewHandler mounts every procedure of the service, the returned path is the prefix
// to register the handler under.
func NewHandler(svc *HarvestService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(newJsonCodec())}, opts...)

	mux := http.NewServeMux()
	mux.Handle(HarvestProcedure, connect.NewUnaryHandler(HarvestProcedure, svc.Harvest, opts...))
	mux.Handle(ListHarvestsProcedure, connect.NewUnaryHandler(ListHarvestsProcedure, svc.ListHarvests, opts...))
	mux.Handle(GetHarvestProcedure, connect.NewUnaryHandler(GetHarvestProcedure, svc.GetHarvest, opts...))
	mux.Handle(MonthlyUsageProcedure, connect.NewUnaryHandler(MonthlyUsageProcedure, svc.MonthlyUsage, opts...))
	return "/" + ServiceName + "/", mux
}

// Client calls a HarvestService over connect with the json codec.
type Client struct {
	harvest      *connect.Client[HarvestRequest, HarvestResponse]
	listHarvests *connect.Client[ListHarvestsRequest, ListHarvestsResponse]
	getHarvest   *connect.Client[GetHarvestRequest, GetHarvestResponse]
	monthlyUsage *connect.Client[MonthlyUsageRequest, MonthlyUsageResponse]
}

func NewClient(httpClient connect.HTTPClient, baseUrl string, opts ...connect.ClientOption) Client {
	baseUrl = strings.TrimRight(baseUrl, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(newJsonCodec())}, opts...)
	return Client{
		harvest:      connect.NewClient[HarvestRequest, HarvestResponse](httpClient, baseUrl+HarvestProcedure, opts...),
		listHarvests: connect.NewClient[ListHarvestsRequest, ListHarvestsResponse](httpClient, baseUrl+ListHarvestsProcedure, opts...),
		getHarvest:   connect.NewClient[GetHarvestRequest, GetHarvestResponse](httpClient, baseUrl+GetHarvestProcedure, opts...),
		monthlyUsage: connect.NewClient[MonthlyUsageRequest, MonthlyUsageResponse](httpClient, baseUrl+MonthlyUsageProcedure, opts...),
	}
}

func (c Client) Harvest(ctx context.Context, req *HarvestRequest) (*HarvestResponse, error) {
	res, err := c.harvest.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) ListHarvests(ctx context.Context, req *ListHarvestsRequest) (*ListHarvestsResponse, error) {
	res, err := c.listHarvests.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) GetHarvest(ctx context.Context, req *GetHarvestRequest) (*GetHarvestResponse, error) {
	res, err := c.getHarvest.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c Client) MonthlyUsage(ctx context.Context, req *MonthlyUsageRequest) (*MonthlyUsageResponse, error) {
	res, err := c.monthlyUsage.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
