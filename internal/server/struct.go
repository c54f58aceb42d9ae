// Package server implements the HTTP server, middleware, and request
// handlers for the widget API.
package server

import (
	"sync"
	"time"

	"github.com/dhiksjf/serverstat-hub/internal/geoip"
	"github.com/dhiksjf/serverstat-hub/internal/query"
	"github.com/dhiksjf/serverstat-hub/internal/storage"
	"github.com/dhiksjf/serverstat-hub/internal/widget"
)

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests.
type Server struct {
	// storage provides access to the persisted widget configurations.
	storage *storage.Repository

	// geoip resolves server IP addresses to country codes.
	// It can be nil if the GeoIP database is not initialized.
	geoip *geoip.Provider

	// fetcher is the A2S query client; it carries only the configured
	// timeout and is safe for concurrent use.
	fetcher *query.Client

	// renderer produces the widget HTML page and embed snippets.
	renderer *widget.Renderer

	// statusCache holds recent query outcomes keyed by the xxhash of
	// "host:port", so that many embedded widgets tracking the same server
	// do not each hit the game server on every refresh.
	statusCache sync.Map

	// shutdown broadcasts a stop signal to the cache janitor.
	shutdown chan struct{}

	// baseURL is the public origin of this service used in embeds.
	baseURL string

	// authToken is the secret required for administrative endpoints.
	// When empty, those endpoints are disabled outright.
	authToken string

	// corsOrigins lists origins allowed to call the API from a browser;
	// "*" allows any, which embedded widgets on third-party sites need.
	corsOrigins []string

	// cacheTTL is how long a cached query outcome stays fresh.
	cacheTTL time.Duration

	// maxBody caps incoming request bodies.
	maxBody int64

	// hardLimitCount / hardLimitWin define the per-IP rate limit.
	hardLimitCount int
	hardLimitWin   time.Duration

	// trustProxy enables X-Forwarded-For / CF-Connecting-IP handling.
	trustProxy bool
}

// cachedStatus is one statusCache entry.
type cachedStatus struct {
	at      time.Time
	outcome query.QueryOutcome
	country string
}
