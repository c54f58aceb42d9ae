package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dhiksjf/serverstat-hub/internal/models"
	"github.com/dhiksjf/serverstat-hub/internal/query"
	"github.com/dhiksjf/serverstat-hub/internal/vars"
	"github.com/dhiksjf/serverstat-hub/internal/widget"
)

// statusEnvelope is the JSON shape for single-server query responses.
type statusEnvelope struct {
	Success     bool               `json:"success"`
	Data        *query.ServerInfo  `json:"data,omitempty"`
	CountryCode string             `json:"country_code,omitempty"`
	Error       *query.ErrorDetail `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusForKind maps a query failure class to an HTTP response code.
func statusForKind(kind query.ErrorKind) int {
	switch kind {
	case query.ErrInvalidInput, query.ErrResolution:
		return http.StatusBadRequest
	case query.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// cachedFetch runs a query through the short-TTL status cache so that many
// widgets tracking one server share a single upstream query per window.
// It returns the outcome plus the server's country code when GeoIP is up.
func (s *Server) cachedFetch(host string, port int) (query.QueryOutcome, string) {
	key := xxhash.Sum64String(query.Target{Host: host, Port: port}.String())

	if val, ok := s.statusCache.Load(key); ok {
		if entry, ok := val.(cachedStatus); ok && time.Since(entry.at) < s.cacheTTL {
			return entry.outcome, entry.country
		}
	}

	outcome := s.fetcher.Fetch(host, port)

	var country string
	if s.geoip != nil && outcome.Success {
		if ep, err := query.ResolveEndpoint(host, port); err == nil {
			country = s.geoip.CountryCode(ep.ResolvedIP)
		}
	}

	s.statusCache.Store(key, cachedStatus{at: time.Now(), outcome: outcome, country: country})

	return outcome, country
}

// handleQueryServer performs a live query against a single game server.
// Body: {"host": "1.2.3.4", "port": 27015}
func (s *Server) handleQueryServer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, statusEnvelope{
			Success: false,
			Error:   &query.ErrorDetail{Kind: query.ErrInvalidInput, Message: "invalid JSON body"},
		})
		return
	}

	outcome, country := s.cachedFetch(req.Host, req.Port)
	if !outcome.Success {
		log.Debug().
			Str("host", req.Host).
			Int("port", req.Port).
			Str("kind", string(outcome.Error.Kind)).
			Msg("Server query failed")

		respondJSON(w, statusForKind(outcome.Error.Kind), statusEnvelope{Success: false, Error: outcome.Error})
		return
	}

	respondJSON(w, http.StatusOK, statusEnvelope{Success: true, Data: outcome.Data, CountryCode: country})
}

// handleQueryBatch queries an ordered list of servers with per-endpoint
// failure isolation. Body: [{"host": ..., "port": ...}, ...]
func (s *Server) handleQueryBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var targets []query.Target
	if err := json.NewDecoder(r.Body).Decode(&targets); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	respondJSON(w, http.StatusOK, s.fetcher.FetchMany(targets))
}

// handleSaveConfig validates and persists a widget configuration, assigning
// it a fresh opaque ID.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var cfg models.WidgetConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cfg.ConfigID = uuid.NewString()
	cfg.CreatedAt = time.Now().UTC()

	if err := s.storage.SaveConfig(cfg); err != nil {
		log.Error().Err(err).Msg("Failed to save widget config")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("config_id", cfg.ConfigID).
		Str("host", cfg.ServerHost).
		Int("port", cfg.ServerPort).
		Msg("Widget config created")

	respondJSON(w, http.StatusOK, cfg)
}

// handleListConfigs returns the most recently created configurations, for
// operators checking what the instance is serving.
func (s *Server) handleListConfigs(w http.ResponseWriter, _ *http.Request) {
	configs, err := s.storage.ListConfigs(100)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list widget configs")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(configs),
		"configs": configs,
	})
}

// handleGetConfig returns a stored widget configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.storage.GetConfig(r.PathValue("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch widget config")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		http.NotFound(w, r)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

// handleDeleteConfig removes a stored widget configuration.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existed, err := s.storage.DeleteConfig(id)
	if err != nil {
		log.Error().Err(err).Str("config_id", id).Msg("Failed to delete widget config")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}
	if !existed {
		http.NotFound(w, r)
		return
	}

	log.Info().Str("config_id", id).Msg("Widget config deleted")
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Configuration deleted"})
}

// handleServerStatus returns live status for a stored configuration,
// filtered down to the fields the widget has enabled, plus the appearance
// subset the widget script needs to restyle itself.
func (s *Server) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.storage.GetConfig(r.PathValue("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch widget config")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		http.NotFound(w, r)
		return
	}

	outcome, country := s.cachedFetch(cfg.ServerHost, cfg.ServerPort)
	if !outcome.Success {
		// The widget shows the failure itself; the HTTP exchange is fine.
		respondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   outcome.Error,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         filterFields(outcome.Data, cfg.EnabledFields),
		"country_code": country,
		"config":       cfg.Appearance(),
	})
}

// handleEmbed returns the copy-paste embed code for a stored configuration.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.storage.GetConfig(r.PathValue("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch widget config")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		http.NotFound(w, r)
		return
	}

	respondJSON(w, http.StatusOK, widget.Snippets(s.baseURL, cfg))
}

// handleWidget serves the live widget HTML for iframe embedding.
func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.storage.GetConfig(r.PathValue("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch widget config")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<div style='color:red;padding:20px;'>Widget configuration not found</div>"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderPage(w, s.baseURL, cfg); err != nil {
		log.Error().Err(err).Str("config_id", cfg.ConfigID).Msg("Failed to render widget page")
	}
}

// handleHealth reports build info and a storage liveness signal.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	count, err := s.storage.CountConfigs()
	if err != nil {
		log.Error().Err(err).Msg("Failed to count configs")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"build":   vars.Info(),
		"configs": count,
	})
}

// filterFields projects a ServerInfo onto the widget's enabled fields.
func filterFields(info *query.ServerInfo, enabled map[string]bool) map[string]any {
	all := map[string]any{
		"hostname":           info.Hostname,
		"map":                info.Map,
		"current_players":    info.CurrentPlayers,
		"max_players":        info.MaxPlayers,
		"game":               info.Game,
		"server_type":        info.ServerType,
		"os":                 info.OS,
		"password_protected": info.PasswordProtected,
		"vac_enabled":        info.VACEnabled,
		"ping":               info.Ping,
	}
	if info.PlayerList != nil {
		all["player_list"] = info.PlayerList
	}

	out := make(map[string]any, len(all))
	for field, on := range enabled {
		if !on {
			continue
		}
		if value, ok := all[field]; ok {
			out[field] = value
		}
	}

	return out
}
