package elecweb

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"elecharvest/internal/components/telemetry"
	"elecharvest/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Page is a raw response as seen by the harvester.
type Page struct {
	// Url is the url of the final request after redirects.
	Url         *url.URL
	Status      int
	ContentType string
	Body        []byte
}

// Document parses the page, decoding it from whatever charset the server declared.
func (p *Page) Document() (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(reader)
}

// Session is an already authenticated http session, all endpoints are absolute urls.
// Cookies set by the server are kept by the implementation.
type Session interface {
	Get(ctx context.Context, endpoint string) (*Page, error)
	PostForm(ctx context.Context, endpoint string, form url.Values) (*Page, error)
}

// CookieSet maps a cookie name to its value, as persisted by whoever logged in.
type CookieSet map[string]string

type SessionOptions struct {
	// BaseUrl is the url the cookies are scoped to.
	BaseUrl string
	Cookies CookieSet
	Timeout time.Duration
	// RequestsPerSecond spaces out requests to the server, 0 disables the limiter.
	RequestsPerSecond float64
	// MimicBrowser routes requests through a transport that looks like a desktop browser.
	MimicBrowser bool
	// Insecure skips tls verification, some campus gateways serve broken chains.
	Insecure bool
	// Dump receives the full text of every exchange, it can be nil.
	Dump restyutil.InstrumentOutput
}

var defaultHeaders = map[string]string{
	"Cache-Control":   "max-age=0",
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "zh-CN,zh;q=0.9",
}

// RestySession is the Session used in production.
type RestySession struct {
	http *resty.Client
	tel  telemetry.API
}

func NewRestySession(opts SessionOptions, tel telemetry.API) (*RestySession, error) {
	tel = telemetry.NewScopedAPI("elecweb_session", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(opts.Cookies))
	for name, value := range opts.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(baseUrl, cookies)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	httpClient.SetHeaders(defaultHeaders)
	httpClient.SetTimeout(timeout)
	if opts.Insecure {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if opts.MimicBrowser {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentTracing(httpClient, otel.Tracer("elecharvest/elecweb/http"))
	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &RestySession{http: httpClient, tel: tel}, nil
}

func (s *RestySession) Get(ctx context.Context, endpoint string) (*Page, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, err
	}
	return pageFromResponse(res)
}

func (s *RestySession) PostForm(ctx context.Context, endpoint string, form url.Values) (*Page, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(endpoint)
	if err != nil {
		return nil, err
	}
	return pageFromResponse(res)
}

func pageFromResponse(res *resty.Response) (*Page, error) {
	if res.RawResponse == nil {
		return nil, fmt.Errorf("no response for %s", res.Request.URL)
	}
	finalUrl := res.RawResponse.Request.URL
	return &Page{
		Url:         finalUrl,
		Status:      res.StatusCode(),
		ContentType: res.Header().Get("Content-Type"),
		Body:        res.Body(),
	}, nil
}
