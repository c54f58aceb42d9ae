// Package models defines the data structures used for API requests and
// widget-configuration persistence.
package models

import (
	"fmt"
	"time"

	"github.com/dhiksjf/serverstat-hub/internal/query"
)

// Appearance defaults applied to newly created widget configs.
const (
	DefaultTheme           = "neon"
	DefaultAccentColor     = "#00ff88"
	DefaultBackgroundColor = "#0f0f14"
	DefaultTextColor       = "#e0e0e0"
	DefaultFontFamily      = "'Space Grotesk', sans-serif"
	DefaultRefreshInterval = 30
	DefaultBorderRadius    = 16
	DefaultBorderStyle     = "solid"
	DefaultShadowIntensity = 50
	DefaultAnimationSpeed  = "normal"
	DefaultLayout          = "default"

	// MinRefreshInterval keeps embedded widgets from polling the API, and
	// through it the game server, faster than once per five seconds.
	MinRefreshInterval = 5
)

// DefaultEnabledFields returns the field toggles a fresh widget starts with.
func DefaultEnabledFields() map[string]bool {
	return map[string]bool{
		"hostname":           true,
		"map":                true,
		"current_players":    true,
		"max_players":        true,
		"player_list":        false,
		"game":               true,
		"ping":               true,
		"password_protected": true,
		"vac_enabled":        true,
	}
}

// WidgetConfig is a persisted widget customization keyed by an opaque ID.
// It records which server the widget tracks, which ServerInfo fields it
// shows, and how it looks.
type WidgetConfig struct {
	// betteralign:ignore

	ConfigID        string          `json:"config_id"`
	ServerHost      string          `json:"server_host"`
	ServerPort      int             `json:"server_port"`
	EnabledFields   map[string]bool `json:"enabled_fields"`
	Theme           string          `json:"theme"`
	AccentColor     string          `json:"accent_color"`
	BackgroundColor string          `json:"background_color"`
	TextColor       string          `json:"text_color"`
	FontFamily      string          `json:"font_family"`
	RefreshInterval int             `json:"refresh_interval"`
	DarkMode        bool            `json:"dark_mode"`
	BorderRadius    int             `json:"border_radius"`
	BorderStyle     string          `json:"border_style"`
	ShadowIntensity int             `json:"shadow_intensity"`
	AnimationSpeed  string          `json:"animation_speed"`
	Layout          string          `json:"layout"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ApplyDefaults fills zero-valued appearance fields so that sparse client
// payloads still produce a fully renderable widget.
func (c *WidgetConfig) ApplyDefaults() {
	if c.EnabledFields == nil {
		c.EnabledFields = DefaultEnabledFields()
	}
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	if c.AccentColor == "" {
		c.AccentColor = DefaultAccentColor
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = DefaultBackgroundColor
	}
	if c.TextColor == "" {
		c.TextColor = DefaultTextColor
	}
	if c.FontFamily == "" {
		c.FontFamily = DefaultFontFamily
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	} else if c.RefreshInterval < MinRefreshInterval {
		c.RefreshInterval = MinRefreshInterval
	}
	if c.BorderRadius == 0 {
		c.BorderRadius = DefaultBorderRadius
	}
	if c.BorderStyle == "" {
		c.BorderStyle = DefaultBorderStyle
	}
	if c.ShadowIntensity == 0 {
		c.ShadowIntensity = DefaultShadowIntensity
	}
	if c.AnimationSpeed == "" {
		c.AnimationSpeed = DefaultAnimationSpeed
	}
	if c.Layout == "" {
		c.Layout = DefaultLayout
	}
}

// Validate rejects configs that point at an unusable server address.
func (c *WidgetConfig) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("server_host is required")
	}
	if c.ServerPort < query.MinPort || c.ServerPort > query.MaxPort {
		return fmt.Errorf("server_port must be between %d and %d", query.MinPort, query.MaxPort)
	}
	return nil
}

// QueryRequest is the payload of POST /api/query-server.
type QueryRequest struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AppearanceSummary is the appearance subset returned alongside live status
// so the widget script can restyle itself without refetching the config.
type AppearanceSummary struct {
	Theme           string `json:"theme"`
	AccentColor     string `json:"accent_color"`
	FontFamily      string `json:"font_family"`
	RefreshInterval int    `json:"refresh_interval"`
	DarkMode        bool   `json:"dark_mode"`
}

// Appearance extracts the summary from a stored config.
func (c *WidgetConfig) Appearance() AppearanceSummary {
	return AppearanceSummary{
		Theme:           c.Theme,
		AccentColor:     c.AccentColor,
		FontFamily:      c.FontFamily,
		RefreshInterval: c.RefreshInterval,
		DarkMode:        c.DarkMode,
	}
}
