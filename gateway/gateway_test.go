package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/remote"
)

type upstream struct {
	mu     sync.Mutex
	hits   map[string]int
	server *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{hits: map[string]int{}}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.hits[r.URL.Path]++
		u.mu.Unlock()

		switch {
		case r.URL.Path == "/api/study/precache-urls":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`["/guide", "/static/app.css"]`))
		case strings.HasPrefix(r.URL.Path, "/api/"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok": true}`))
		case strings.HasPrefix(r.URL.Path, "/static/"):
			w.Header().Set("Content-Type", "text/css")
			w.Write([]byte("body{}"))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>" + r.URL.Path + "</html>"))
		}
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func newGateway(t *testing.T, u *upstream, version string, online func() bool) *Server {
	t.Helper()
	p := &profile.Profile{Mode: "test", Data: t.TempDir(), Version: version}
	return newGatewayWithData(t, u, p, online)
}

func newGatewayWithData(t *testing.T, u *upstream, p *profile.Profile, online func() bool) *Server {
	t.Helper()
	client := remote.NewClient(&remote.Config{
		ServerURL: u.server.URL,
		Timeout:   2 * time.Second,
	})
	s, err := NewServer(p, client, Config{
		UpstreamTimeout: 2 * time.Second,
		Online:          online,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.cache.Close() })
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAPIRequestsAreNeverCached(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	for i := 0; i < 3; i++ {
		rec := get(s, "/api/study/session")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 3, u.count("/api/study/session"))
}

func TestMutatingRequestsBypassCache(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/guide", strings.NewReader("x")))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, u.count("/guide"))

	// A POST never warms the cache for the GET path.
	get(s, "/guide")
	require.Equal(t, 2, u.count("/guide"))
}

func TestStaticAssetsAreCacheFirst(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	rec := get(s, "/static/app.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body{}", rec.Body.String())

	get(s, "/static/app.css")
	require.Equal(t, 1, u.count("/static/app.css"))
}

func TestStaticCacheIgnoresQueryString(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	get(s, "/static/app.css")

	// A cache-busting parameter still hits the warmed entry.
	rec := get(s, "/static/app.css?v=20260301")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body{}", rec.Body.String())
	require.Equal(t, 1, u.count("/static/app.css"))
}

func TestCrossOriginUsesSeparateNamespace(t *testing.T) {
	u := newUpstream(t)
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("external"))
	}))
	defer other.Close()

	s := newGateway(t, u, "v1", nil)
	rec := get(s, "/-/proxy?url="+other.URL+"/lib.js")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "external", rec.Body.String())

	other.Close()
	rec = get(s, "/-/proxy?url="+other.URL+"/lib.js")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "external", rec.Body.String())
}

func TestLandingNetworkFirstWithCacheFallback(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/")

	// Upstream gone: the cached landing page still serves.
	u.server.Close()
	rec = get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<html>")
}

func TestNavigationFallsBackToOfflinePage(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)
	u.server.Close()

	rec := get(s, "/some/uncached/page")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "You are offline")
}

func TestReferencePageCacheOnlyWhileOffline(t *testing.T) {
	u := newUpstream(t)
	online := true
	s := newGateway(t, u, "v1", func() bool { return online })

	// Warm while online.
	rec := get(s, "/guide")
	require.Equal(t, http.StatusOK, rec.Code)
	hits := u.count("/guide")

	// Offline: served from cache with no network attempt.
	online = false
	rec = get(s, "/guide")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, hits, u.count("/guide"))
}

func TestVersionBumpPurgesOldNamespaces(t *testing.T) {
	u := newUpstream(t)
	p := &profile.Profile{Mode: "test", Data: t.TempDir(), Version: "v1"}
	s := newGatewayWithData(t, u, p, nil)
	get(s, "/static/app.css")

	oldDir := filepath.Join(p.Data, "gateway-cache", "static-v1")
	if _, err := os.Stat(oldDir); err != nil {
		t.Fatalf("expected namespace dir: %v", err)
	}

	p2 := &profile.Profile{Mode: "test", Data: p.Data, Version: "v2"}
	newGatewayWithData(t, u, p2, nil)

	_, err := os.Stat(oldDir)
	require.True(t, os.IsNotExist(err))
}

func TestControlInvalidate(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	get(s, "/static/app.css")
	require.Equal(t, 1, u.count("/static/app.css"))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/-/control/invalidate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	get(s, "/static/app.css")
	require.Equal(t, 2, u.count("/static/app.css"))
}

func TestControlPrecacheAndPages(t *testing.T) {
	u := newUpstream(t)
	s := newGateway(t, u, "v1", nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/-/control/precache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 2, result["warmed"])
	require.Equal(t, 0, result["failed"])

	// The warmed pages are enumerable over the control channel.
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/control/pages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var pages map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pages))
	require.Len(t, pages["pages"], 1)
	require.Contains(t, pages["pages"][0], "/guide")

	// The warmed asset now serves without another upstream hit.
	before := u.count("/static/app.css")
	get(s, "/static/app.css")
	require.Equal(t, before, u.count("/static/app.css"))
}
