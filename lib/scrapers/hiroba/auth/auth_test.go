package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"
	"hiroba-client/lib/scrapers/hiroba/request"
	"hiroba-client/lib/testutil"

	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

const (
	email    = "don@example.com"
	password = "katsu"
)

const cardListPage = `<html><body>
<div class="cardSelect"><div id="mydon_area">
	<div class="mydon_image"><img src="mydon_1.png"></div>
	<div><p>太鼓番: 111111111111</p></div>
	<div>どんちゃん</div>
</div></div>
<div class="cardSelect"><div id="mydon_area">
	<div class="mydon_image"><img src="mydon_2.png"></div>
	<div><p>太鼓番: 222222222222</p></div>
	<div>かっちゃん</div>
</div></div>
</body></html>`

type fakePortal struct {
	server *httptest.Server
	token  string
	// the steps reached, in order
	steps []string
	// misbehaviors
	loginProcessStatus int
	// login_done.php redirects and the landing page sets the token
	tokenOnLanding bool
}

// newFakePortal serves both the identity provider and the portal.
func newFakePortal(t testing.TB) *fakePortal {
	token, err := random.String(32)
	if err != nil {
		t.Fatal(err)
	}
	p := &fakePortal{token: token, loginProcessStatus: http.StatusFound}

	mux := http.NewServeMux()
	mux.HandleFunc("/v3/login/idpw", func(w http.ResponseWriter, r *http.Request) {
		p.steps = append(p.steps, "idpw")
		err := r.ParseForm()
		if err != nil || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("login_id") != email || r.PostForm.Get("password") != password {
			json.NewEncoder(w).Encode(map[string]any{"error": "login failed"})
			return
		}
		if r.PostForm.Get("client_id") != "nbgi_taiko" || r.PostForm.Get("prompt") != "login" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "idp_session", Value: "s1", Domain: ".bandainamcoid.com"})
		http.SetCookie(w, &http.Cookie{Name: "tracking", Value: "t1", Domain: "example.com"})
		http.SetCookie(w, &http.Cookie{Name: "hostonly", Value: "h1"})
		json.NewEncoder(w).Encode(map[string]any{"redirect": p.server.URL + "/v2/oauth2/auth"})
	})
	mux.HandleFunc("/v2/oauth2/auth", func(w http.ResponseWriter, r *http.Request) {
		p.steps = append(p.steps, "authorize")
		if r.Header.Get("Cookie") != "idp_session=s1;" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "/login_process.php", http.StatusFound)
	})
	mux.HandleFunc("/login_process.php", func(w http.ResponseWriter, r *http.Request) {
		p.steps = append(p.steps, "login_process")
		if r.Header.Get("Cookie") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "first", Value: "1", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "second", Value: "2", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "login_state", Value: "ls3", Path: "/", HttpOnly: true})
		w.Header().Set("Location", "/login_done.php")
		w.WriteHeader(p.loginProcessStatus)
	})
	mux.HandleFunc("/login_done.php", func(w http.ResponseWriter, r *http.Request) {
		p.steps = append(p.steps, "login_done")
		if r.Header.Get("Cookie") != "login_state=ls3" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if p.tokenOnLanding {
			http.Redirect(w, r, "/mypage_top.php", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: core.TokenCookieName, Value: p.token, Path: "/"})
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/login_select.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != core.TokenCookieName+"="+p.token {
			http.Redirect(w, r, "https://account.bandainamcoid.com/login.html", http.StatusFound)
			return
		}
		if r.Method == http.MethodPost {
			r.ParseForm()
			p.steps = append(p.steps, "select:"+r.PostForm.Get("id_pos"))
			http.Redirect(w, r, "/mypage_top.php", http.StatusFound)
			return
		}
		w.Write([]byte(cardListPage))
	})
	mux.HandleFunc("/mypage_top.php", func(w http.ResponseWriter, r *http.Request) {
		p.steps = append(p.steps, "mypage")
		if p.tokenOnLanding {
			http.SetCookie(w, &http.Cookie{Name: core.TokenCookieName, Value: p.token, Path: "/"})
		}
		w.Write([]byte("<html></html>"))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) authenticator() *Authenticator {
	endpoints := core.DefaultEndpoints()
	endpoints.PortalOrigin = p.server.URL
	endpoints.IdentityLoginURL = p.server.URL + "/v3/login/idpw"

	transport := core.NewRestyTransport(core.TransportOptions{})
	client := request.NewClient(transport, request.Options{Endpoints: endpoints})
	return NewAuthenticator(client, nil)
}

func TestSessionToken(t *testing.T) {
	portal := newFakePortal(t)
	token, err := portal.authenticator().SessionToken(context.Background(), email, password)
	require.NoError(t, err)
	require.Equal(t, portal.token, token)
	require.Equal(t, []string{"idpw", "authorize", "login_process", "login_done"}, portal.steps)
}

func TestSessionTokenOnLandingPage(t *testing.T) {
	portal := newFakePortal(t)
	portal.tokenOnLanding = true
	token, err := portal.authenticator().SessionToken(context.Background(), email, password)
	require.NoError(t, err)
	require.Equal(t, portal.token, token)
	require.Equal(t, []string{"idpw", "authorize", "login_process", "login_done", "login_done", "mypage"}, portal.steps)
}

func TestSessionTokenRedirectFollowed(t *testing.T) {
	landing := testutil.Page([]byte("<html></html>"))
	landing.FinalURL = "https://donderhiroba.jp/mypage_top.php"
	landing.Header = http.Header{}
	landing.Header.Add("Set-Cookie", core.TokenCookieName+"=t0k3n; Path=/")

	transport := testutil.NewFakeTransport()
	transport.On("POST", "v3/login/idpw", testutil.Page([]byte(`{"redirect":"https://www.bandainamcoid.com/auth"}`)))
	transport.On("GET", "auth", testutil.Redirect("https://donderhiroba.jp/login_process.php"))
	loginProcess := testutil.Redirect("https://donderhiroba.jp/login_done.php")
	loginProcess.Header.Add("Set-Cookie", "first=1")
	loginProcess.Header.Add("Set-Cookie", "second=2")
	loginProcess.Header.Add("Set-Cookie", "login_state=ls3; Path=/")
	transport.On("GET", "login_process.php", loginProcess)
	transport.On("GET", "login_done.php", testutil.Redirect("https://donderhiroba.jp/mypage_top.php"), landing)

	auth := NewAuthenticator(request.NewClient(transport, request.Options{}), nil)
	token, err := auth.SessionToken(context.Background(), email, password)
	require.NoError(t, err)
	require.Equal(t, "t0k3n", token)

	require.Equal(t, 2, transport.Count("GET", "login_done.php"))
	first, second := transport.Calls[3], transport.Calls[4]
	require.False(t, first.FollowRedirects)
	require.True(t, second.FollowRedirects)
	require.Equal(t, "login_state=ls3", second.Header.Get("Cookie"))
}

func TestSessionTokenInvalidPassword(t *testing.T) {
	portal := newFakePortal(t)
	_, err := portal.authenticator().SessionToken(context.Background(), email, "wrong")
	require.ErrorIs(t, err, core.ErrInvalidIdPassword)
	require.Equal(t, []string{"idpw"}, portal.steps)
}

func TestSessionTokenLoginProcessStatus(t *testing.T) {
	portal := newFakePortal(t)
	portal.loginProcessStatus = http.StatusOK
	_, err := portal.authenticator().SessionToken(context.Background(), email, password)
	require.ErrorIs(t, err, core.ErrCannotConnect)
}

func TestSessionTokenUnreachable(t *testing.T) {
	portal := newFakePortal(t)
	auth := portal.authenticator()
	portal.server.Close()
	_, err := auth.SessionToken(context.Background(), email, password)
	require.ErrorIs(t, err, core.ErrCannotConnect)
}

func TestSessionTokenScripted(t *testing.T) {
	cases := []struct {
		name     string
		script   func(*testutil.FakeTransport)
		expected error
	}{
		{
			name: "identity provider down",
			script: func(f *testutil.FakeTransport) {
				f.On("POST", "v3/login/idpw", testutil.Route{Status: http.StatusServiceUnavailable})
			},
			expected: core.ErrCannotConnect,
		},
		{
			name: "undecodable body",
			script: func(f *testutil.FakeTransport) {
				f.On("POST", "v3/login/idpw", testutil.Page([]byte("<html>")))
			},
			expected: core.ErrCannotConnect,
		},
		{
			name: "too few cookies",
			script: func(f *testutil.FakeTransport) {
				f.On("POST", "v3/login/idpw", testutil.Page([]byte(`{"redirect":"https://www.bandainamcoid.com/auth"}`)))
				f.On("GET", "auth", testutil.Redirect("https://donderhiroba.jp/login_process.php"))
				f.On("GET", "login_process.php", testutil.Redirect("https://donderhiroba.jp/done"))
			},
			expected: core.ErrCannotConnect,
		},
		{
			name: "no token after redirects",
			script: func(f *testutil.FakeTransport) {
				f.On("POST", "v3/login/idpw", testutil.Page([]byte(`{"redirect":"https://www.bandainamcoid.com/auth"}`)))
				f.On("GET", "auth", testutil.Redirect("https://donderhiroba.jp/login_process.php"))
				loginProcess := testutil.Redirect("https://donderhiroba.jp/login_done.php")
				loginProcess.Header.Add("Set-Cookie", "first=1")
				loginProcess.Header.Add("Set-Cookie", "second=2")
				loginProcess.Header.Add("Set-Cookie", "login_state=ls3")
				f.On("GET", "login_process.php", loginProcess)
				f.On("GET", "login_done.php", testutil.Redirect("https://donderhiroba.jp/mypage_top.php"), testutil.Page([]byte("<html></html>")))
			},
			expected: core.ErrCannotConnect,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			transport := testutil.NewFakeTransport()
			c.script(transport)
			auth := NewAuthenticator(request.NewClient(transport, request.Options{}), nil)
			_, err := auth.SessionToken(context.Background(), email, password)
			require.ErrorIs(t, err, c.expected)
		})
	}
}

func TestIdentityCookies(t *testing.T) {
	header := http.Header{}
	header.Add("Set-Cookie", "a=1; Domain=.bandainamcoid.com; Path=/")
	header.Add("Set-Cookie", "b=2; Domain=donderhiroba.jp")
	header.Add("Set-Cookie", "c=3")
	header.Add("Set-Cookie", "d=4; Domain=bandainamcoid.com")
	res := &core.Response{Header: header}

	require.Equal(t, "a=1;d=4;", identityCookies(res, "bandainamcoid.com"))
}

func TestCardLogin(t *testing.T) {
	portal := newFakePortal(t)
	auth := portal.authenticator()

	card, err := auth.CardLogin(context.Background(), portal.token, "222222222222", nil)
	require.NoError(t, err)
	require.Equal(t, "かっちゃん", card.Nickname)
	require.Equal(t, []string{"select:2", "mypage"}, portal.steps)

	_, err = auth.CardLogin(context.Background(), portal.token, "333333333333", nil)
	require.ErrorIs(t, err, core.ErrNoMatchedCard)

	// a stale list is used as is
	stale := []parse.Card{{TaikoNumber: "111111111111", Nickname: "どんちゃん", MyDon: "mydon_1.png"}}
	_, err = auth.CardLogin(context.Background(), portal.token, "222222222222", stale)
	require.ErrorIs(t, err, core.ErrNoMatchedCard)

	_, err = auth.CardLogin(context.Background(), "expired", "222222222222", nil)
	require.ErrorIs(t, err, core.ErrNotLogined)
}
