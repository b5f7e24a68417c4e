// Package testutil builds throwaway repositories and servers for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// RepoServer serves a directory over HTTP and counts requests.
type RepoServer struct {
	*httptest.Server
	hits atomic.Int64
}

// NewRepoServer serves dir until the test ends.
func NewRepoServer(t *testing.T, dir string) *RepoServer {
	t.Helper()
	return NewSlowRepoServer(t, dir, 0)
}

// NewSlowRepoServer serves dir, waiting delay before every response.
func NewSlowRepoServer(t *testing.T, dir string, delay time.Duration) *RepoServer {
	t.Helper()
	rs := &RepoServer{}
	files := http.FileServer(http.Dir(dir))
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

// Hits returns the number of requests served so far.
func (rs *RepoServer) Hits() int64 {
	return rs.hits.Load()
}

// BaseURL returns the server URL with a trailing slash.
func (rs *RepoServer) BaseURL(t *testing.T) *url.URL {
	t.Helper()
	return MustURL(t, rs.URL+"/")
}

// NewUnavailableServer answers every request with 503.
func NewUnavailableServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// MustURL parses raw or fails the test.
func MustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}
