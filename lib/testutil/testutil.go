// Package testutil holds the fakes shared by the hiroba package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"hiroba-client/lib/scrapers/hiroba/core"

	_ "modernc.org/sqlite"
)

// Route is one scripted response.
type Route struct {
	Status int
	Header http.Header
	Body   []byte
	// overrides the final URL, used to simulate a redirect to another origin
	FinalURL string
	Err      error
}

// Page is a 200 response on the requested URL.
func Page(body []byte) Route {
	return Route{Status: http.StatusOK, Body: body}
}

// Redirect is a 302 response pointing at location.
func Redirect(location string) Route {
	header := http.Header{}
	header.Set("Location", location)
	return Route{Status: http.StatusFound, Header: header}
}

// Offsite is a 200 response that ended up on the identity provider's login page,
// what the portal serves once the session has expired.
func Offsite() Route {
	return Route{
		Status:   http.StatusOK,
		Body:     []byte("<html><body>login</body></html>"),
		FinalURL: "https://account.bandainamcoid.com/login.html",
	}
}

// Failure is a transport level error.
func Failure() Route {
	return Route{Err: fmt.Errorf("connection refused")}
}

// FakeTransport replays scripted responses keyed by method and path (with query).
// Each key replays its routes in order and repeats the last one. Unscripted
// requests get a 404.
type FakeTransport struct {
	mutex  sync.Mutex
	routes map[string][]Route
	served map[string]int
	Calls  []core.Request
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		routes: map[string][]Route{},
		served: map[string]int{},
	}
}

func routeKey(method, pathAndQuery string) string {
	return method + " /" + strings.TrimLeft(pathAndQuery, "/")
}

// On scripts the responses of method + pathAndQuery, ex. On("GET", "score_list.php?genre=1", ...).
// Calling On again for the same key replaces its script.
func (f *FakeTransport) On(method, pathAndQuery string, routes ...Route) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	key := routeKey(method, pathAndQuery)
	f.routes[key] = routes
	f.served[key] = 0
}

// Count is how many times method + pathAndQuery was requested.
func (f *FakeTransport) Count(method, pathAndQuery string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	key := routeKey(method, pathAndQuery)
	n := 0
	for _, call := range f.Calls {
		link, err := url.Parse(call.URL)
		if err != nil {
			continue
		}
		if routeKey(call.Method, link.RequestURI()) == key {
			n++
		}
	}
	return n
}

func (f *FakeTransport) Exchange(ctx context.Context, req core.Request) (*core.Response, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.Calls = append(f.Calls, req)

	link, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	key := routeKey(req.Method, link.RequestURI())

	routes := f.routes[key]
	if len(routes) == 0 {
		return &core.Response{
			Status:   http.StatusNotFound,
			Header:   http.Header{},
			FinalURL: link,
		}, nil
	}
	i := f.served[key]
	if i >= len(routes) {
		i = len(routes) - 1
	}
	f.served[key]++
	route := routes[i]

	if route.Err != nil {
		return nil, route.Err
	}

	finalUrl := link
	if route.FinalURL != "" {
		finalUrl, err = url.Parse(route.FinalURL)
		if err != nil {
			return nil, err
		}
	}
	header := route.Header
	if header == nil {
		header = http.Header{}
	}
	return &core.Response{
		Status:   route.Status,
		Header:   header,
		FinalURL: finalUrl,
		Body:     route.Body,
	}, nil
}

// OpenMemoryDB opens an in-memory sqlite database with schema applied.
func OpenMemoryDB(t testing.TB, schema string) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	_, err = db.Exec(schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
