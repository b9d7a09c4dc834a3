package core

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Endpoints is every external location the client talks to. Tests point these at
// local servers.
type Endpoints struct {
	PortalOrigin string
	// the identity provider's credential exchange endpoint
	IdentityLoginURL string
	// cookies from the identity provider whose domain is not this are dropped
	IdentityCookieDomain string

	ClientID    string
	RedirectURI string
	Language    string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		PortalOrigin:         "https://donderhiroba.jp",
		IdentityLoginURL:     "https://account-api.bandainamcoid.com/v3/login/idpw",
		IdentityCookieDomain: "bandainamcoid.com",
		ClientID:             "nbgi_taiko",
		RedirectURI:          "https://www.bandainamcoid.com/v2/oauth2/auth?back=v3&client_id=nbgi_taiko&scope=JpGroupAll&redirect_uri=https%3A%2F%2Fdonderhiroba.jp%2Flogin_process.php%3Finvite_code%3D%26abs_back_url%3D%26location_code%3D&text=",
		Language:             "ko",
	}
}

// Portal resolves a path (with optional query) against the portal origin.
func (e Endpoints) Portal(path string, query url.Values) string {
	link := strings.TrimRight(e.PortalOrigin, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return link
}

// PortalURL is Portal parsed, used to resolve relative hrefs found in pages.
func (e Endpoints) PortalURL() *url.URL {
	u, err := url.Parse(e.PortalOrigin)
	if err != nil {
		panic(fmt.Sprintf("invalid portal origin %q: %s", e.PortalOrigin, err))
	}
	return u
}

// BrowserHeaders is the header set every portal page request carries. The session
// cookie is only attached when token is non-empty.
func BrowserHeaders(token string) http.Header {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("User-Agent", userAgent)
	if token != "" {
		header.Set("Cookie", TokenCookieName+"="+token)
	}
	return header
}

// AjaxHeaders is the header set of the portal's XHR endpoints (profile edits, score refresh).
func AjaxHeaders(token, origin, referer string) http.Header {
	header := http.Header{}
	header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	header.Set("Origin", origin)
	header.Set("Referer", referer)
	header.Set("X-Requested-With", "XMLHttpRequest")
	header.Set("User-Agent", userAgent)
	if token != "" {
		header.Set("Cookie", TokenCookieName+"="+token)
	}
	return header
}
