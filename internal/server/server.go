package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dhiksjf/serverstat-hub/internal/config"
	"github.com/dhiksjf/serverstat-hub/internal/geoip"
	"github.com/dhiksjf/serverstat-hub/internal/query"
	"github.com/dhiksjf/serverstat-hub/internal/storage"
	"github.com/dhiksjf/serverstat-hub/internal/widget"
)

// New creates a Server instance wired to the provided storage, GeoIP
// provider (nil disables enrichment), and configuration.
func New(store *storage.Repository, geo *geoip.Provider, cfg *config.Config) (*Server, error) {
	renderer, err := widget.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize widget renderer: %w", err)
	}

	fetcher := query.New(cfg.Query.Timeout)
	if cfg.Query.BufferSize > 0 {
		fetcher.BufferSize = cfg.Query.BufferSize
	}

	return &Server{
		storage:        store,
		geoip:          geo,
		fetcher:        fetcher,
		renderer:       renderer,
		baseURL:        cfg.Server.BaseURL,
		authToken:      cfg.Server.AuthToken,
		corsOrigins:    cfg.Server.CORSOrigins,
		maxBody:        cfg.Server.MaxBodySize,
		trustProxy:     cfg.Server.TrustProxy,
		cacheTTL:       cfg.Query.CacheTTL,
		hardLimitCount: cfg.RateLimit.Count,
		hardLimitWin:   cfg.RateLimit.Window,

		shutdown: make(chan struct{}),
	}, nil
}

// Start launches the status-cache janitor.
func (s *Server) Start() {
	go s.gcStatusCache()
}

// Stop signals background routines to exit.
func (s *Server) Stop() {
	close(s.shutdown)
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/query-server", s.RateLimitMiddleware(http.HandlerFunc(s.handleQueryServer)))
	mux.Handle("POST /api/query-batch", s.RateLimitMiddleware(http.HandlerFunc(s.handleQueryBatch)))
	mux.Handle("POST /api/configs", s.RateLimitMiddleware(http.HandlerFunc(s.handleSaveConfig)))
	mux.Handle("GET /api/configs", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleListConfigs)))
	mux.Handle("GET /api/configs/{id}", http.HandlerFunc(s.handleGetConfig))
	mux.Handle("DELETE /api/configs/{id}", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteConfig)))
	mux.Handle("GET /api/server-status/{id}", s.RateLimitMiddleware(http.HandlerFunc(s.handleServerStatus)))
	mux.Handle("GET /api/embed/{id}", http.HandlerFunc(s.handleEmbed))
	mux.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /widget/{id}", http.HandlerFunc(s.handleWidget))

	return s.LoggingMiddleware(s.CORSMiddleware(mux))
}

// gcStatusCache periodically drops expired entries from the status cache.
func (s *Server) gcStatusCache() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			now := time.Now()
			s.statusCache.Range(func(key, value interface{}) bool {
				entry, ok := value.(cachedStatus)
				if !ok || now.Sub(entry.at) > s.cacheTTL {
					s.statusCache.Delete(key)
				}
				return true
			})
		}
	}
}
