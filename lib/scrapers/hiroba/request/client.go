// Package request issues one exchange per portal endpoint and classifies the
// response. It keeps no session state, the token is passed on every call.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hiroba-client/lib/chrono"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hiroba/request")

const (
	report_client_fetch    = "client.fetch"
	report_client_mutation = "client.mutation"
)

const (
	pathCardList     = "login_select.php"
	pathScoreList    = "score_list.php"
	pathScoreDetail  = "score_detail.php"
	pathDanDetail    = "dan_detail.php"
	pathCompeDetail  = "compe_detail.php"
	pathCompeRanking = "compe_ranking.php"
	pathMypage       = "mypage_top.php"
	pathChangeName   = "ajax/change_mydon_profile.php"
	pathUpdateScore  = "ajax/update_score.php"
)

type Options struct {
	Endpoints core.Endpoints
	Time      chrono.TimeAPI
	Telemetry telemetry.API
}

// Client builds the portal requests. Safe for concurrent use as long as the
// transport is.
type Client struct {
	transport core.Transport
	endpoints core.Endpoints
	time      chrono.TimeAPI
	tel       telemetry.API
}

// NewClient creates a Client, a zero Options.Endpoints means the live portal.
func NewClient(transport core.Transport, opts Options) *Client {
	endpoints := opts.Endpoints
	if endpoints.PortalOrigin == "" {
		endpoints = core.DefaultEndpoints()
	}
	return &Client{
		transport: transport,
		endpoints: endpoints,
		time:      chrono.OrDefault(opts.Time),
		tel:       telemetry.NewScopedAPI("hiroba_request", telemetry.OrDefault(opts.Telemetry)),
	}
}

func (c *Client) Endpoints() core.Endpoints {
	return c.endpoints
}

func (c *Client) Transport() core.Transport {
	return c.transport
}

func (c *Client) Now() time.Time {
	return c.time.Now()
}

// page GETs a portal page without following redirects and returns its body once
// it passes core.CheckPortalResponse.
func (c *Client) page(ctx context.Context, token, path string, query url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "page:"+path)
	defer span.End()

	link := c.endpoints.Portal(path, query)
	span.SetAttributes(attribute.String("url", link))

	res, err := c.transport.Exchange(ctx, core.Request{
		Method: http.MethodGet,
		URL:    link,
		Header: core.BrowserHeaders(token),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("get %s: %w", path, err))
		return nil, core.CannotConnect(nil, fmt.Errorf("get %s: %w", path, err))
	}

	err = core.CheckPortalResponse(res, c.endpoints)
	if err != nil {
		span.SetStatus(codes.Error, "not logged in")
		c.tel.ReportDebug("rejected portal response", path, res.Status, res.Origin())
		return nil, err
	}
	return res.Body, nil
}

type mutationResult struct {
	Result *int `json:"result"`
}

// mutate POSTs to one of the portal's ajax endpoints, the call succeeded only when
// the JSON body reports result 0.
func (c *Client) mutate(ctx context.Context, token, path, referer string, form url.Values) error {
	ctx, span := tracer.Start(ctx, "mutate:"+path)
	defer span.End()

	origin := strings.TrimRight(c.endpoints.PortalOrigin, "/")
	res, err := c.transport.Exchange(ctx, core.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.Portal(path, nil),
		Header: core.AjaxHeaders(token, origin, c.endpoints.Portal(referer, nil)),
		Form:   form,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.tel.ReportBroken(report_client_mutation, fmt.Errorf("post %s: %w", path, err))
		return core.CannotConnect(nil, fmt.Errorf("post %s: %w", path, err))
	}
	if res.Status != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return core.CannotConnect(res, fmt.Errorf("post %s: status %d", path, res.Status))
	}

	var result mutationResult
	err = json.Unmarshal(res.Body, &result)
	if err != nil {
		span.SetStatus(codes.Error, "undecodable result")
		c.tel.ReportWarning(report_client_mutation, fmt.Errorf("decode %s: %w", path, err))
		return core.NewError(core.KindUnknownError, res, fmt.Errorf("decode %s: %w", path, err))
	}
	if result.Result == nil || *result.Result != 0 {
		span.SetStatus(codes.Error, "non-zero result")
		return core.NewError(core.KindUnknownError, res, fmt.Errorf("%s: result %s", path, formatResult(result.Result)))
	}
	return nil
}

func formatResult(result *int) string {
	if result == nil {
		return "missing"
	}
	return strconv.Itoa(*result)
}
