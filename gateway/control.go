package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// staticPrecacheURLs is the fallback warm list used when the server cannot
// provide a dynamic one.
var staticPrecacheURLs = []string{
	"/",
	"/guide",
	"/reference",
	"/library",
	"/static/app.css",
	"/static/app.js",
}

const precacheConcurrency = 4

// controlInvalidate wipes every cached response.
func (s *Server) controlInvalidate(c echo.Context) error {
	if err := s.cache.Clear(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	slog.Info("gateway cache invalidated")
	return c.JSON(http.StatusOK, map[string]bool{"cleared": true})
}

// controlPages lists the page URLs currently cached.
func (s *Server) controlPages(c echo.Context) error {
	urls, err := s.cache.PageURLs(classPages)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if urls == nil {
		urls = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"pages": urls})
}

// controlPrecache warms the cache: the server's dynamic URL list when it
// answers, the static fallback list otherwise. Fetches run concurrently but
// bounded, and individual failures do not abort the pass.
func (s *Server) controlPrecache(c echo.Context) error {
	ctx := c.Request().Context()

	paths, err := s.client.PrecacheURLs(ctx)
	if err != nil || len(paths) == 0 {
		slog.Debug("dynamic precache list unavailable, using static list", "error", err)
		paths = staticPrecacheURLs
	}

	var warmed, failed int
	group, groupCtx := errgroup.WithContext(context.WithoutCancel(ctx))
	group.SetLimit(precacheConcurrency)
	results := make(chan bool, len(paths))
	for _, p := range paths {
		p := p
		group.Go(func() error {
			class := classPages
			if classifyPath(p) == routeStatic {
				class = classStatic
			}
			_, err := s.fetchAndCache(groupCtx, class, s.client.ServerURL()+p)
			results <- err == nil
			return nil
		})
	}
	_ = group.Wait()
	close(results)
	for ok := range results {
		if ok {
			warmed++
		} else {
			failed++
		}
	}

	slog.Info("precache pass finished", "warmed", warmed, "failed", failed)
	return c.JSON(http.StatusOK, map[string]int{"warmed": warmed, "failed": failed})
}

// classifyPath classifies a bare path from a precache list.
func classifyPath(p string) routeClass {
	r, err := http.NewRequest(http.MethodGet, p, nil)
	if err != nil {
		return routeNavigation
	}
	return classify(r)
}
