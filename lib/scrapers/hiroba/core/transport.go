package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hiroba-client/lib/restyutil"
	"hiroba-client/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Request is one HTTP exchange. Header is sent as-is, no cookie jar is involved.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// sent as an application/x-www-form-urlencoded body when non-nil
	Form url.Values
	// when false the first response is returned even if it is a redirect
	FollowRedirects bool
}

type Response struct {
	Status int
	Header http.Header
	// the URL of the request that produced this response, after any redirects
	FinalURL *url.URL
	Body     []byte
}

// Cookies parses every Set-Cookie header of the response.
func (r *Response) Cookies() []*http.Cookie {
	return (&http.Response{Header: r.Header}).Cookies()
}

// SetCookies is the raw Set-Cookie header values in the order they were received.
func (r *Response) SetCookies() []string {
	return r.Header.Values("Set-Cookie")
}

// Cookie returns the value of the named cookie set by this response.
func (r *Response) Cookie(name string) (string, bool) {
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Location resolves the Location header against the final URL.
func (r *Response) Location() (*url.URL, error) {
	loc := r.Header.Get("Location")
	if loc == "" {
		return nil, http.ErrNoLocation
	}
	parsed, err := url.Parse(loc)
	if err != nil {
		return nil, err
	}
	if r.FinalURL == nil {
		return parsed, nil
	}
	return r.FinalURL.ResolveReference(parsed), nil
}

// Origin is scheme://host of the final URL.
func (r *Response) Origin() string {
	if r.FinalURL == nil {
		return ""
	}
	return r.FinalURL.Scheme + "://" + r.FinalURL.Host
}

// Transport performs one HTTP exchange.
//
// note: fault injection point
type Transport interface {
	Exchange(ctx context.Context, req Request) (*Response, error)
}

type TransportOptions struct {
	// defaults to 30 seconds
	Timeout time.Duration
	// 0 disables pacing
	RequestsPerSecond float64
	CloudflareBypass  bool
	// every exchange is written here when set
	DumpOutput restyutil.InstrumentOutput
	Telemetry  telemetry.API
}

// RestyTransport is the Transport used outside of tests.
type RestyTransport struct {
	http *resty.Client
	tel  telemetry.API
}

type followCtxKeyType int

var followCtxKey followCtxKeyType

const maxRedirects = 10

func NewRestyTransport(opts TransportOptions) *RestyTransport {
	tel := telemetry.NewScopedAPI("hiroba_transport", telemetry.OrDefault(opts.Telemetry))

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	httpClient := resty.New()
	// cookies are attached explicitly per step of the login chain
	httpClient.SetCookieJar(nil)
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("user-agent", userAgent)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		follow, _ := req.Context().Value(followCtxKey).(bool)
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}))

	if opts.RequestsPerSecond > 0 {
		// max burst of 1 keeps the multi-page fetches evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "hiroba/http")
	restyutil.InstrumentClient(httpClient, "hiroba", opts.DumpOutput)

	return &RestyTransport{http: httpClient, tel: tel}
}

func (t *RestyTransport) Exchange(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}

	r := t.http.R().SetContext(context.WithValue(ctx, followCtxKey, req.FollowRedirects))
	for key, values := range req.Header {
		for _, v := range values {
			r.Header.Add(key, v)
		}
	}
	if req.Form != nil {
		r.SetFormDataFromValues(req.Form)
	}

	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}
	if res.RawResponse == nil {
		return nil, fmt.Errorf("%s %s: no response", req.Method, req.URL)
	}

	finalUrl := res.RawResponse.Request.URL
	if finalUrl == nil {
		finalUrl, err = url.Parse(req.URL)
		if err != nil {
			return nil, err
		}
	}

	return &Response{
		Status:   res.StatusCode(),
		Header:   res.Header(),
		FinalURL: finalUrl,
		Body:     res.Body(),
	}, nil
}
