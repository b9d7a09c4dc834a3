package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t testing.TB) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "a", Value: "1", Domain: ".bandainamcoid.com"})
		http.SetCookie(w, &http.Cookie{Name: "b", Value: "2"})
		http.SetCookie(w, &http.Cookie{Name: "c", Value: "3", Path: "/"})
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cookie=" + r.Header.Get("Cookie")))
	})
	mux.HandleFunc("/form", func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(r.Method + " " + r.PostForm.Get("id_pos")))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRestyTransportRedirects(t *testing.T) {
	server := newTestServer(t)
	transport := NewRestyTransport(TransportOptions{})

	header := http.Header{}
	header.Set("Cookie", "k=v")

	res, err := transport.Exchange(context.Background(), Request{
		Method: http.MethodGet,
		URL:    server.URL + "/start",
		Header: header,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, res.Status)
	require.Equal(t, "/start", res.FinalURL.Path)
	require.Len(t, res.SetCookies(), 3)
	require.Equal(t, "c=3; Path=/", res.SetCookies()[2])

	value, ok := res.Cookie("a")
	require.True(t, ok)
	require.Equal(t, "1", value)
	require.Equal(t, "bandainamcoid.com", res.Cookies()[0].Domain)

	location, err := res.Location()
	require.NoError(t, err)
	require.Equal(t, server.URL+"/end", location.String())

	res, err = transport.Exchange(context.Background(), Request{
		Method:          http.MethodGet,
		URL:             server.URL + "/start",
		Header:          header,
		FollowRedirects: true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "/end", res.FinalURL.Path)
	// no cookie jar: only the explicit header is sent
	require.Equal(t, "cookie=k=v", string(res.Body))
}

func TestRestyTransportForm(t *testing.T) {
	server := newTestServer(t)
	transport := NewRestyTransport(TransportOptions{RequestsPerSecond: 100})

	res, err := transport.Exchange(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/form",
		Form:   url.Values{"id_pos": {"2"}, "mode": {"exec"}},
	})
	require.NoError(t, err)
	require.Equal(t, "POST 2", string(res.Body))
}

func TestRestyTransportUnreachable(t *testing.T) {
	server := newTestServer(t)
	link := server.URL
	server.Close()

	transport := NewRestyTransport(TransportOptions{})
	_, err := transport.Exchange(context.Background(), Request{
		Method: http.MethodGet,
		URL:    link,
	})
	require.Error(t, err)
}
