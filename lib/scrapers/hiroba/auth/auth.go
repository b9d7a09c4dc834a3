// Package auth reproduces the portal's login handshake: a four hop exchange
// through the identity provider yielding a session token, and the card selection
// that makes one of the account's cards active.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"
	"hiroba-client/lib/scrapers/hiroba/request"
	"hiroba-client/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hiroba/auth")

const (
	report_authenticator_session_token = "authenticator.session-token"
	report_authenticator_card_login    = "authenticator.card-login"
)

type Authenticator struct {
	client    *request.Client
	transport core.Transport
	endpoints core.Endpoints
	tel       telemetry.API
}

func NewAuthenticator(client *request.Client, tel telemetry.API) *Authenticator {
	return &Authenticator{
		client:    client,
		transport: client.Transport(),
		endpoints: client.Endpoints(),
		tel:       telemetry.NewScopedAPI("hiroba_auth", telemetry.OrDefault(tel)),
	}
}

type idpwResponse struct {
	Redirect string `json:"redirect"`
}

func (a *Authenticator) cannotConnect(step string, res *core.Response, err error) error {
	a.tel.ReportWarning(report_authenticator_session_token, step, err)
	return core.CannotConnect(res, fmt.Errorf("%s: %w", step, err))
}

// SessionToken exchanges credentials for a session token.
//
//  1. POST the credentials to the identity provider, it answers with a redirect URL.
//  2. GET that URL carrying only the identity provider's cookies from step 1.
//  3. GET the Location of step 2 with no cookies, it must be a 302.
//  4. GET the Location of step 3 with the third cookie step 3 set, the response sets the token.
//     When it redirects without one, the request is repeated following redirects
//     and the token is read from the landing page.
func (a *Authenticator) SessionToken(ctx context.Context, email, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "SessionToken")
	defer span.End()

	// step 1
	res, err := a.transport.Exchange(ctx, core.Request{
		Method: http.MethodPost,
		URL:    a.endpoints.IdentityLoginURL,
		Header: core.BrowserHeaders(""),
		Form: url.Values{
			"client_id":    {a.endpoints.ClientID},
			"redirect_uri": {a.endpoints.RedirectURI},
			"customize_id": {""},
			"login_id":     {email},
			"password":     {password},
			"shortcut":     {"0"},
			"retention":    {"0"},
			"language":     {a.endpoints.Language},
			"cookie":       {fmt.Sprintf(`{"language":"%s"}`, a.endpoints.Language)},
			"prompt":       {"login"},
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit credentials")
		return "", a.cannotConnect("submit credentials", nil, err)
	}
	if res.Status != http.StatusOK {
		span.SetStatus(codes.Error, "credential exchange returned non-200")
		return "", a.cannotConnect("submit credentials", res, fmt.Errorf("status %d", res.Status))
	}
	var idpw idpwResponse
	err = json.Unmarshal(res.Body, &idpw)
	if err != nil {
		span.SetStatus(codes.Error, "undecodable credential exchange response")
		return "", a.cannotConnect("submit credentials", res, err)
	}
	if idpw.Redirect == "" {
		span.SetStatus(codes.Error, "credentials rejected")
		return "", core.NewError(core.KindInvalidIdPassword, res, nil)
	}

	// step 2
	header := core.BrowserHeaders("")
	cookie := identityCookies(res, a.endpoints.IdentityCookieDomain)
	if cookie != "" {
		header.Set("Cookie", cookie)
	}
	res, err = a.transport.Exchange(ctx, core.Request{
		Method: http.MethodGet,
		URL:    idpw.Redirect,
		Header: header,
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to follow authorization redirect")
		return "", a.cannotConnect("authorize", nil, err)
	}
	location, err := res.Location()
	if err != nil {
		span.SetStatus(codes.Error, "authorization did not redirect")
		return "", a.cannotConnect("authorize", res, err)
	}

	// step 3
	res, err = a.transport.Exchange(ctx, core.Request{
		Method: http.MethodGet,
		URL:    location.String(),
		Header: core.BrowserHeaders(""),
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to reach login process")
		return "", a.cannotConnect("login process", nil, err)
	}
	if res.Status != http.StatusFound {
		span.SetStatus(codes.Error, "login process did not redirect")
		return "", a.cannotConnect("login process", res, fmt.Errorf("status %d", res.Status))
	}
	location, err = res.Location()
	if err != nil {
		span.SetStatus(codes.Error, "login process redirect has no location")
		return "", a.cannotConnect("login process", res, err)
	}
	setCookies := res.SetCookies()
	if len(setCookies) < 3 {
		span.SetStatus(codes.Error, "login process set too few cookies")
		return "", a.cannotConnect("login process", res, fmt.Errorf("expected 3 cookies, got %d", len(setCookies)))
	}
	portalCookie, _, _ := strings.Cut(setCookies[2], ";")

	// step 4
	token, res, err := a.fetchToken(ctx, location.String(), strings.TrimSpace(portalCookie), false)
	if err == nil && token == "" && isRedirect(res.Status) {
		token, res, err = a.fetchToken(ctx, location.String(), strings.TrimSpace(portalCookie), true)
	}
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch session token")
		return "", a.cannotConnect("session token", nil, err)
	}
	if token == "" {
		span.SetStatus(codes.Error, "no session token cookie")
		return "", a.cannotConnect("session token", res, fmt.Errorf("no %s cookie", core.TokenCookieName))
	}

	a.tel.ReportDebug("obtained session token", email)
	return token, nil
}

// fetchToken requests the login completion page with the portal cookie, the token
// is read from the first response or, when follow is set, from the page the
// redirects land on.
func (a *Authenticator) fetchToken(ctx context.Context, link, cookie string, follow bool) (string, *core.Response, error) {
	header := core.BrowserHeaders("")
	header.Set("Cookie", cookie)
	res, err := a.transport.Exchange(ctx, core.Request{
		Method:          http.MethodGet,
		URL:             link,
		Header:          header,
		FollowRedirects: follow,
	})
	if err != nil {
		return "", nil, err
	}
	token, _ := res.Cookie(core.TokenCookieName)
	return token, res, nil
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

// identityCookies renders the cookies of res scoped to domain as a Cookie header,
// cookies of every other domain are dropped.
func identityCookies(res *core.Response, domain string) string {
	domain = strings.TrimPrefix(domain, ".")
	var out strings.Builder
	for _, c := range res.Cookies() {
		if strings.TrimPrefix(c.Domain, ".") != domain {
			continue
		}
		out.WriteString(c.Name)
		out.WriteString("=")
		out.WriteString(c.Value)
		out.WriteString(";")
	}
	return out.String()
}

// CardLogin makes the card with taikoNumber active. cards is the cached card list,
// it is fetched when empty. A card missing from cards is NO_MATCHED_CARD, callers
// holding a stale list are expected to reload it and retry once.
func (a *Authenticator) CardLogin(ctx context.Context, token, taikoNumber string, cards []parse.Card) (parse.Card, error) {
	ctx, span := tracer.Start(ctx, "CardLogin")
	defer span.End()
	span.SetAttributes(attribute.String("taiko_number", taikoNumber))

	if len(cards) == 0 {
		var err error
		cards, err = a.client.Cards(ctx, token)
		if err != nil {
			span.SetStatus(codes.Error, "failed to fetch card list")
			return parse.Card{}, err
		}
	}

	position := -1
	for i, card := range cards {
		if card.TaikoNumber == taikoNumber {
			position = i
			break
		}
	}
	if position < 0 {
		span.SetStatus(codes.Error, "no matched card")
		return parse.Card{}, core.NewError(core.KindNoMatchedCard, nil, fmt.Errorf("taiko number %s", taikoNumber))
	}

	err := a.client.SelectCard(ctx, token, position+1)
	if err != nil {
		span.SetStatus(codes.Error, "failed to select card")
		a.tel.ReportWarning(report_authenticator_card_login, err)
		return parse.Card{}, err
	}
	return cards[position], nil
}
