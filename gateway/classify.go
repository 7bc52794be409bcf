package gateway

import (
	"net/http"
	"path"
	"strings"
)

// routeClass decides which caching strategy a request gets. Classes are
// checked in priority order; the first match wins.
type routeClass int

const (
	// routeNetworkOnly: API, auth and mutating requests never touch the cache.
	routeNetworkOnly routeClass = iota
	// routeStatic: same-origin assets, cache-first in the static namespace.
	routeStatic
	// routeCross: explicit cross-origin proxy requests, separate namespace.
	routeCross
	// routeLanding: the landing page, network-first with cache fallback.
	routeLanding
	// routeReference: fixed reference pages, cache-only offline and
	// stale-while-revalidate online.
	routeReference
	// routeNavigation: everything else, network-first then cache then the
	// offline page.
	routeNavigation
)

// cache namespace classes
const (
	classStatic = "static"
	classCross  = "cross"
	classPages  = "pages"
)

var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".webp": true,
	".woff": true, ".woff2": true, ".ttf": true,
	".mp3": true, ".ogg": true, ".wav": true,
	".wasm": true, ".json": true,
}

var referencePaths = map[string]bool{
	"/guide":     true,
	"/reference": true,
	"/library":   true,
}

func classify(r *http.Request) routeClass {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return routeNetworkOnly
	}
	p := r.URL.Path
	if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/auth/") {
		return routeNetworkOnly
	}
	if r.URL.Query().Get("url") != "" {
		return routeCross
	}
	if strings.HasPrefix(p, "/static/") || staticExtensions[strings.ToLower(path.Ext(p))] {
		return routeStatic
	}
	if p == "/" {
		return routeLanding
	}
	if referencePaths[strings.TrimSuffix(p, "/")] {
		return routeReference
	}
	return routeNavigation
}
