// Package gateway is the request-routing and caching layer. It runs as its
// own HTTP server in front of the server of record and decides per request
// whether to answer from cache, the network, or an offline fallback. The
// host process talks to it only over HTTP, control endpoints included.
package gateway

import (
	"context"
	_ "embed"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/remote"
)

//go:embed offline.html
var offlinePage []byte

// Config holds the gateway configuration.
type Config struct {
	// UpstreamTimeout bounds every upstream fetch, independent of the
	// client request's own cancellation.
	UpstreamTimeout time.Duration
	// Online reports whether the upstream is believed reachable; the
	// reference-page strategy switches on it. Nil means always online.
	Online func() bool
}

// Server is the gateway HTTP server.
type Server struct {
	e       *echo.Echo
	profile *profile.Profile
	client  *remote.Client
	cache   *responseCache
	config  Config

	httpClient *http.Client
}

// NewServer creates the gateway, purging response caches left behind by
// prior versions.
func NewServer(p *profile.Profile, client *remote.Client, config Config) (*Server, error) {
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 10 * time.Second
	}
	respCache, err := newResponseCache(p.Data, p.Version)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create response cache")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		e:       e,
		profile: p,
		client:  client,
		cache:   respCache,
		config:  config,
		httpClient: &http.Client{
			// The per-fetch context carries the timeout; the client-level
			// timeout is a backstop.
			Timeout: 2 * config.UpstreamTimeout,
		},
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.e.POST("/-/control/invalidate", s.controlInvalidate)
	s.e.GET("/-/control/pages", s.controlPages)
	s.e.POST("/-/control/precache", s.controlPrecache)
	s.e.Any("/*", s.handle)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	slog.Info("gateway started", "addr", addr, "version", s.profile.Version)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "gateway server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "gateway shutdown failed")
	}
	return s.cache.Close()
}

// ServeHTTP lets tests drive the gateway without a listening socket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) online() bool {
	if s.config.Online == nil {
		return true
	}
	return s.config.Online()
}

// handle applies the routing strategy for the request's class.
func (s *Server) handle(c echo.Context) error {
	switch classify(c.Request()) {
	case routeNetworkOnly:
		return s.proxyOnly(c)
	case routeStatic:
		return s.cacheFirst(c, classStatic, s.sameOriginURL(c))
	case routeCross:
		return s.cacheFirst(c, classCross, c.QueryParam("url"))
	case routeLanding:
		return s.networkFirst(c, true)
	case routeReference:
		return s.referencePage(c)
	default:
		return s.networkFirst(c, false)
	}
}

func (s *Server) sameOriginURL(c echo.Context) string {
	return s.client.ServerURL() + c.Request().URL.RequestURI()
}

// fetch retrieves a URL from upstream. The fetch context is detached from
// the client request's cancellation and bounded by a fixed timeout, so a
// hung upstream or an impatient client cannot wedge the layer.
func (s *Server) fetch(reqCtx context.Context, method, url string, body io.Reader, header http.Header) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), s.config.UpstreamTimeout)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "failed to create upstream request")
	}
	for key, values := range header {
		if key == "Host" || key == "Connection" {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelReadCloser releases the fetch context once the body is consumed.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// proxyOnly forwards the request to upstream with no cache involvement.
func (s *Server) proxyOnly(c echo.Context) error {
	r := c.Request()
	resp, err := s.fetch(r.Context(), r.Method, s.sameOriginURL(c), r.Body, r.Header)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream unreachable"})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream read failed"})
	}
	return c.Blob(resp.StatusCode, resp.Header.Get("Content-Type"), body)
}

// cacheFirst serves from the given namespace, fetching and caching on miss.
func (s *Server) cacheFirst(c echo.Context, class, url string) error {
	ctx := c.Request().Context()
	if hit, ok := s.cache.Get(ctx, class, url); ok {
		return c.Blob(hit.Status, hit.ContentType, hit.Body)
	}

	cached, err := s.fetchAndCache(ctx, class, url)
	if err != nil {
		return c.HTMLBlob(http.StatusServiceUnavailable, offlinePage)
	}
	return c.Blob(cached.Status, cached.ContentType, cached.Body)
}

// networkFirst tries upstream, falls back to cache, and for navigations
// finally to the offline page. landing marks the landing page, whose
// fallback stops at the cache.
func (s *Server) networkFirst(c echo.Context, landing bool) error {
	ctx := c.Request().Context()
	url := s.sameOriginURL(c)

	cached, err := s.fetchAndCache(ctx, classPages, url)
	if err == nil {
		return c.Blob(cached.Status, cached.ContentType, cached.Body)
	}

	if hit, ok := s.cache.Get(ctx, classPages, url); ok {
		return c.Blob(hit.Status, hit.ContentType, hit.Body)
	}
	if landing {
		// The landing fallback chain stops at the cache.
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "offline and not cached"})
	}
	return c.HTMLBlob(http.StatusServiceUnavailable, offlinePage)
}

// referencePage serves the fixed reference set: cache-only with no network
// wait while offline, stale-while-revalidate while online.
func (s *Server) referencePage(c echo.Context) error {
	ctx := c.Request().Context()
	url := s.sameOriginURL(c)
	hit, ok := s.cache.Get(ctx, classPages, url)

	if !s.online() {
		if ok {
			return c.Blob(hit.Status, hit.ContentType, hit.Body)
		}
		return c.HTMLBlob(http.StatusServiceUnavailable, offlinePage)
	}

	if ok {
		// Serve stale immediately; refresh in the background.
		go func() {
			if _, err := s.fetchAndCache(context.Background(), classPages, url); err != nil {
				slog.Debug("reference revalidation failed", "url", url, "error", err)
			}
		}()
		return c.Blob(hit.Status, hit.ContentType, hit.Body)
	}

	cached, err := s.fetchAndCache(ctx, classPages, url)
	if err != nil {
		return c.HTMLBlob(http.StatusServiceUnavailable, offlinePage)
	}
	return c.Blob(cached.Status, cached.ContentType, cached.Body)
}

// fetchAndCache fetches a URL and stores successful responses. Non-2xx
// responses are returned but not cached.
func (s *Server) fetchAndCache(ctx context.Context, class, url string) (*cachedResponse, error) {
	resp, err := s.fetch(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upstream body")
	}

	cached := &cachedResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		URL:         url,
		CachedAt:    time.Now().UTC(),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := s.cache.Put(ctx, class, url, cached); err != nil {
			slog.Warn("failed to cache response", "url", url, "error", err)
		}
	}
	return cached, nil
}
