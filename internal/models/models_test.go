package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := WidgetConfig{ServerHost: "203.0.113.10", ServerPort: 27015}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultTheme, cfg.Theme)
	assert.Equal(t, DefaultAccentColor, cfg.AccentColor)
	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)
	assert.Equal(t, DefaultLayout, cfg.Layout)
	assert.True(t, cfg.EnabledFields["hostname"])
	assert.False(t, cfg.EnabledFields["player_list"])
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := WidgetConfig{
		ServerHost:      "203.0.113.10",
		ServerPort:      27015,
		Theme:           "cyberpunk",
		RefreshInterval: 120,
		EnabledFields:   map[string]bool{"map": true},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "cyberpunk", cfg.Theme)
	assert.Equal(t, 120, cfg.RefreshInterval)
	assert.Equal(t, map[string]bool{"map": true}, cfg.EnabledFields)
}

func TestApplyDefaultsRefreshFloor(t *testing.T) {
	cfg := WidgetConfig{ServerHost: "a", ServerPort: 1, RefreshInterval: 1}
	cfg.ApplyDefaults()
	assert.Equal(t, MinRefreshInterval, cfg.RefreshInterval)
}

func TestValidate(t *testing.T) {
	good := WidgetConfig{ServerHost: "203.0.113.10", ServerPort: 27015}
	require.NoError(t, good.Validate())

	noHost := WidgetConfig{ServerPort: 27015}
	assert.Error(t, noHost.Validate())

	badPort := WidgetConfig{ServerHost: "a", ServerPort: 0}
	assert.Error(t, badPort.Validate())

	badPort.ServerPort = 65536
	assert.Error(t, badPort.Validate())
}
